package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/smartfix/internal/model"
)

// CustomerRecordsRepo reads and writes the small customer-owned tables shown
// on the customer profile.  Every list method returns a non-nil slice.
type CustomerRecordsRepo struct {
	db *sql.DB
}

func NewCustomerRecordsRepo(db *sql.DB) *CustomerRecordsRepo { return &CustomerRecordsRepo{db: db} }

// listRows runs q and collects one value per row using scan.
func listRows[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), q string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *CustomerRecordsRepo) Addresses(ctx context.Context, customerID string) ([]model.Address, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Address, error) {
		var a model.Address
		err := s.Scan(&a.ID, &a.CustomerID, &a.Label, &a.Street, &a.City, &a.State, &a.Zip, &a.IsDefault)
		return a, err
	}, `SELECT id, customer_id, label, street, city, state, zip, is_default
	      FROM customer_addresses WHERE customer_id = ? ORDER BY is_default DESC, label`, customerID)
}

func (r *CustomerRecordsRepo) Notifications(ctx context.Context, customerID string) ([]model.Notification, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Notification, error) {
		var n model.Notification
		err := s.Scan(&n.ID, &n.CustomerID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
		return n, err
	}, `SELECT id, customer_id, title, message, type, is_read, created_at
	      FROM notifications WHERE customer_id = ? ORDER BY created_at DESC LIMIT 50`, customerID)
}

// CreateNotification inserts an unread notification.
func (r *CustomerRecordsRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = "info"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, customer_id, title, message, type) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.CustomerID, n.Title, n.Message, n.Type)
	return err
}

// LoyaltyAccount returns the account row or ErrNotFound.
func (r *CustomerRecordsRepo) LoyaltyAccount(ctx context.Context, customerID string) (model.LoyaltyAccount, error) {
	var a model.LoyaltyAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT customer_id, points, tier, updated_at FROM loyalty_accounts WHERE customer_id = ?`, customerID).
		Scan(&a.CustomerID, &a.Points, &a.Tier, &a.UpdatedAt)
	return a, notFound(err)
}

// LoyaltyRewards returns active rewards affordable with maxPoints.
func (r *CustomerRecordsRepo) LoyaltyRewards(ctx context.Context, maxPoints int) ([]model.LoyaltyReward, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.LoyaltyReward, error) {
		var rw model.LoyaltyReward
		err := s.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.PointsCost)
		return rw, err
	}, `SELECT id, name, description, points_cost FROM loyalty_rewards
	     WHERE active = 1 AND points_cost <= ? ORDER BY points_cost`, maxPoints)
}

func (r *CustomerRecordsRepo) LoyaltyHistory(ctx context.Context, customerID string) ([]model.LoyaltyTransaction, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.LoyaltyTransaction, error) {
		var t model.LoyaltyTransaction
		err := s.Scan(&t.ID, &t.CustomerID, &t.Points, &t.Description, &t.CreatedAt)
		return t, err
	}, `SELECT id, customer_id, points, description, created_at
	      FROM loyalty_transactions WHERE customer_id = ? ORDER BY created_at DESC LIMIT 100`, customerID)
}

// AwardPoints credits points to a customer, creating the account on first
// use, and records the movement in the history.
func (r *CustomerRecordsRepo) AwardPoints(ctx context.Context, customerID string, points int, description string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loyalty_accounts (customer_id, points) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE points = points + VALUES(points)`, customerID, points); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loyalty_transactions (id, customer_id, points, description) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), customerID, points, description); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *CustomerRecordsRepo) Devices(ctx context.Context, customerID string) ([]model.CustomerDevice, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.CustomerDevice, error) {
		var d model.CustomerDevice
		err := s.Scan(&d.ID, &d.CustomerID, &d.Name, &d.Type, &d.Brand, &d.Model, &d.SerialNumber, &d.CreatedAt)
		return d, err
	}, `SELECT id, customer_id, name, type, brand, model, serial_number, created_at
	      FROM customer_devices WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

func (r *CustomerRecordsRepo) Warranties(ctx context.Context, customerID string) ([]model.Warranty, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Warranty, error) {
		var w model.Warranty
		err := s.Scan(&w.ID, &w.CustomerID, &w.BookingID, &w.DeviceName, &w.Coverage, &w.StartsAt, &w.ExpiresAt)
		return w, err
	}, `SELECT id, customer_id, booking_id, device_name, coverage, starts_at, expires_at
	      FROM warranties WHERE customer_id = ? ORDER BY expires_at DESC`, customerID)
}

func (r *CustomerRecordsRepo) Invoices(ctx context.Context, customerID string) ([]model.Invoice, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Invoice, error) {
		var (
			inv model.Invoice
			due sql.NullTime
		)
		err := s.Scan(&inv.ID, &inv.CustomerID, &inv.BookingID, &inv.InvoiceNumber, &inv.Amount, &inv.Status, &inv.IssuedAt, &due)
		if due.Valid {
			inv.DueAt = &due.Time
		}
		return inv, err
	}, `SELECT id, customer_id, booking_id, invoice_number, amount, status, issued_at, due_at
	      FROM invoices WHERE customer_id = ? ORDER BY issued_at DESC`, customerID)
}

func (r *CustomerRecordsRepo) Referrals(ctx context.Context, customerID string) ([]model.Referral, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Referral, error) {
		var rf model.Referral
		err := s.Scan(&rf.ID, &rf.CustomerID, &rf.Code, &rf.ReferredEmail, &rf.Status, &rf.RewardPoints, &rf.CreatedAt)
		return rf, err
	}, `SELECT id, customer_id, code, referred_email, status, reward_points, created_at
	      FROM referrals WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

// Settings returns the settings row or ErrNotFound.
func (r *CustomerRecordsRepo) Settings(ctx context.Context, customerID string) (model.CustomerSettings, error) {
	var st model.CustomerSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT customer_id, email_notifications, sms_notifications, marketing_emails, preferred_contact
		   FROM customer_settings WHERE customer_id = ?`, customerID).
		Scan(&st.CustomerID, &st.EmailNotifications, &st.SMSNotifications, &st.MarketingEmails, &st.PreferredContact)
	return st, notFound(err)
}

func (r *CustomerRecordsRepo) Reviews(ctx context.Context, customerID string) ([]model.Review, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Review, error) {
		var rv model.Review
		err := s.Scan(&rv.ID, &rv.CustomerID, &rv.BookingID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
		return rv, err
	}, `SELECT id, customer_id, booking_id, rating, comment, created_at
	      FROM reviews WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

func (r *CustomerRecordsRepo) Favorites(ctx context.Context, customerID string) ([]model.Favorite, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.Favorite, error) {
		var f model.Favorite
		err := s.Scan(&f.ID, &f.CustomerID, &f.ServiceID, &f.ServiceName, &f.CreatedAt)
		return f, err
	}, `SELECT f.id, f.customer_id, f.service_id, COALESCE(s.name, ''), f.created_at
	      FROM favorites f LEFT JOIN services s ON s.id = f.service_id
	     WHERE f.customer_id = ? ORDER BY f.created_at DESC`, customerID)
}

func (r *CustomerRecordsRepo) PaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethod, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.PaymentMethod, error) {
		var p model.PaymentMethod
		err := s.Scan(&p.ID, &p.CustomerID, &p.Brand, &p.Last4, &p.ExpMonth, &p.ExpYear, &p.IsDefault)
		return p, err
	}, `SELECT id, customer_id, brand, last4, exp_month, exp_year, is_default
	      FROM payment_methods WHERE customer_id = ? ORDER BY is_default DESC, exp_year DESC`, customerID)
}
