package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/smartfix/internal/database"
	"github.com/iliyamo/smartfix/internal/model"
)

// BookingRepo manages repair bookings.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions that
// span several repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingSelect = `SELECT b.id, b.tracking_number, b.customer_id, b.customer_name, b.customer_email,
       b.customer_phone, b.device_type, b.device_brand, b.device_model, b.service_id,
       COALESCE(s.name, ''), b.issue_description, b.status, b.priority, b.delivery_type,
       b.address, DATE_FORMAT(b.scheduled_date, '%Y-%m-%d'), b.scheduled_time,
       b.cost_estimate, b.delivery_fee, COALESCE(b.notes, ''), b.picked_up_at,
       b.created_at, b.updated_at
  FROM bookings b
  LEFT JOIN services s ON s.id = b.service_id`

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b          model.Booking
		customerID sql.NullString
		address    []byte
		estimate   decimal.NullDecimal
		pickedUp   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.TrackingNumber, &customerID, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.Device.Type, &b.Device.Brand, &b.Device.Model, &b.ServiceID,
		&b.ServiceName, &b.IssueDescription, &b.Status, &b.Priority, &b.DeliveryType,
		&address, &b.ScheduledDate, &b.ScheduledTime,
		&estimate, &b.DeliveryFee, &b.Notes, &pickedUp,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if customerID.Valid {
		b.CustomerID = &customerID.String
	}
	if len(address) > 0 && string(address) != "null" {
		var a model.Address
		if err := json.Unmarshal(address, &a); err != nil {
			return model.Booking{}, fmt.Errorf("decode booking address: %w", err)
		}
		b.Address = &a
	}
	if estimate.Valid {
		b.CostEstimate = &estimate.Decimal
	}
	if pickedUp.Valid {
		b.PickedUpAt = &pickedUp.Time
	}
	return b, nil
}

func (r *BookingRepo) queryBookings(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create inserts b.  ID is assigned when empty; status and priority default
// to Pending and normal.  A duplicate tracking number yields ErrConflict.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	if b.Priority == "" {
		b.Priority = model.PriorityNormal
	}
	var address any
	if b.Address != nil {
		raw, err := json.Marshal(b.Address)
		if err != nil {
			return err
		}
		address = raw
	}
	var estimate any
	if b.CostEstimate != nil {
		estimate = *b.CostEstimate
	}
	const q = `INSERT INTO bookings (id, tracking_number, customer_id, customer_name, customer_email,
	             customer_phone, device_type, device_brand, device_model, service_id, issue_description,
	             status, priority, delivery_type, address, scheduled_date, scheduled_time,
	             cost_estimate, delivery_fee, notes)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.TrackingNumber, b.CustomerID, b.CustomerName, b.CustomerEmail,
		b.CustomerPhone, b.Device.Type, b.Device.Brand, b.Device.Model, b.ServiceID, b.IssueDescription,
		string(b.Status), string(b.Priority), b.DeliveryType, address, b.ScheduledDate, b.ScheduledTime,
		estimate, b.DeliveryFee, b.Notes)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// GetByID returns one booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	return b, notFound(err)
}

// GetByTrackingNumber looks a booking up by its public tracking number.
func (r *BookingRepo) GetByTrackingNumber(ctx context.Context, tracking string) (model.Booking, error) {
	tracking = strings.ToUpper(strings.TrimSpace(tracking))
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.tracking_number = ?`, tracking))
	return b, notFound(err)
}

// ListByCustomer returns a customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error) {
	return r.queryBookings(ctx, bookingSelect+` WHERE b.customer_id = ? ORDER BY b.created_at DESC`, customerID)
}

// ListByIDs returns the bookings whose id is in ids.  Unknown ids are skipped.
func (r *BookingRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Booking, error) {
	if len(ids) == 0 {
		return []model.Booking{}, nil
	}
	ph, args := placeholders(ids)
	return r.queryBookings(ctx, bookingSelect+` WHERE b.id IN (`+ph+`)`, args...)
}

// ListReadyForPickup returns completed repairs not yet handed over.
func (r *BookingRepo) ListReadyForPickup(ctx context.Context) ([]model.Booking, error) {
	return r.queryBookings(ctx, bookingSelect+` WHERE b.status = ? AND b.picked_up_at IS NULL ORDER BY b.updated_at ASC`,
		string(model.BookingCompleted))
}

// BookingQuery filters, sorts and pages the staff booking board.
type BookingQuery struct {
	Status   string // exact status, empty for all
	Search   string // matches tracking number, customer name or email
	Sort     string // created_at | scheduled_date | status | priority
	Desc     bool
	Page     int
	PageSize int
}

var bookingSortColumns = map[string]string{
	"created_at":     "b.created_at",
	"scheduled_date": "b.scheduled_date",
	"status":         "b.status",
	"priority":       "FIELD(b.priority, 'urgent', 'high', 'normal', 'low')",
}

// List returns one page of bookings and the total number of matches.
func (r *BookingRepo) List(ctx context.Context, q BookingQuery) ([]model.Booking, int64, error) {
	where := []string{}
	args := []any{}
	if q.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(b.tracking_number LIKE ? OR LOWER(b.customer_name) LIKE ? OR LOWER(b.customer_email) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, "%"+strings.ToUpper(s)+"%", like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings b`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := bookingSortColumns[q.Sort]
	if !ok {
		col = bookingSortColumns["created_at"]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	page := append(args, q.PageSize, (q.Page-1)*q.PageSize)
	items, err := r.queryBookings(ctx, bookingSelect+clause+` ORDER BY `+col+` `+dir+`, b.id LIMIT ? OFFSET ?`, page...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStatus sets the status of a booking.  Last write wins.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, string(status), id))
}

// MarkPickedUp stamps picked_up_at on every booking in ids that is not yet
// picked up and returns the ids it left alone, either already picked up or
// missing.
func (r *BookingRepo) MarkPickedUp(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var missed []string
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET picked_up_at = ? WHERE id = ? AND picked_up_at IS NULL`, at.UTC(), id)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 0 {
			missed = append(missed, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return missed, nil
}

// Delete removes a booking permanently.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id))
}

// CountByStatus returns the number of bookings per status.  Statuses with no
// bookings are present with a zero count.
func (r *BookingRepo) CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.BookingStatus]int, len(model.BookingStatuses))
	for _, st := range model.BookingStatuses {
		out[st] = 0
	}
	for rows.Next() {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[model.BookingStatus(st)] = n
	}
	return out, rows.Err()
}

// placeholders returns "?, ?, ?" for ids and the matching argument slice.
func placeholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
