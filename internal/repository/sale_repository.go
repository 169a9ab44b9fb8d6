package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/smartfix/internal/database"
	"github.com/iliyamo/smartfix/internal/model"
)

// SaleRepo stores POS sales.  A sale row is written once and never updated.
type SaleRepo struct {
	db *sql.DB
}

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// Create inserts s as one record.  A receipt number clash yields ErrConflict.
func (r *SaleRepo) Create(ctx context.Context, s *model.Sale) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	items, err := json.Marshal(s.Items)
	if err != nil {
		return err
	}
	const q = `INSERT INTO sales (id, receipt_number, cashier_id, customer_id, items, subtotal,
	             discount_percent, discount, tax, total, payment_method)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q, s.ID, s.ReceiptNumber, s.CashierID, s.CustomerID, items,
		s.Subtotal, s.DiscountPercent, s.Discount, s.Tax, s.Total, s.PaymentMethod)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

const saleSelect = `SELECT id, receipt_number, cashier_id, customer_id, items, subtotal, discount_percent,
       discount, tax, total, payment_method, created_at
  FROM sales`

func scanSale(row rowScanner) (model.Sale, error) {
	var (
		s          model.Sale
		customerID sql.NullString
		items      []byte
	)
	if err := row.Scan(&s.ID, &s.ReceiptNumber, &s.CashierID, &customerID, &items, &s.Subtotal,
		&s.DiscountPercent, &s.Discount, &s.Tax, &s.Total, &s.PaymentMethod, &s.CreatedAt); err != nil {
		return model.Sale{}, err
	}
	if customerID.Valid {
		s.CustomerID = &customerID.String
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return model.Sale{}, fmt.Errorf("decode sale items: %w", err)
	}
	return s, nil
}

// GetByReceipt returns one sale by receipt number.
func (r *SaleRepo) GetByReceipt(ctx context.Context, receipt string) (model.Sale, error) {
	s, err := scanSale(r.db.QueryRowContext(ctx, saleSelect+` WHERE receipt_number = ?`, receipt))
	return s, notFound(err)
}

// ListSince returns sales created at or after since, newest first.
func (r *SaleRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]model.Sale, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, saleSelect+` WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TotalSince sums sale totals created at or after since.
func (r *SaleRepo) TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error) {
	var (
		total decimal.NullDecimal
		count int
	)
	err := r.db.QueryRowContext(ctx, `SELECT SUM(total), COUNT(*) FROM sales WHERE created_at >= ?`, since.UTC()).
		Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	if !total.Valid {
		return decimal.Zero, count, nil
	}
	return total.Decimal, count, nil
}
