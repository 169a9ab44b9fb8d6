package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/smartfix/internal/model"
)

// SupportRepo manages support tickets.
type SupportRepo struct {
	db *sql.DB
}

func NewSupportRepo(db *sql.DB) *SupportRepo { return &SupportRepo{db: db} }

const ticketSelect = `SELECT id, customer_id, email, subject, message, status, priority, created_at, updated_at
  FROM support_tickets`

func scanTicket(s rowScanner) (model.SupportTicket, error) {
	var (
		t          model.SupportTicket
		customerID sql.NullString
	)
	err := s.Scan(&t.ID, &customerID, &t.Email, &t.Subject, &t.Message, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if customerID.Valid {
		t.CustomerID = &customerID.String
	}
	return t, err
}

// ByCustomer lists the tickets opened by one customer.
func (r *SupportRepo) ByCustomer(ctx context.Context, customerID string) ([]model.SupportTicket, error) {
	return listRows(ctx, r.db, scanTicket, ticketSelect+` WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

// List returns tickets for the support desk, optionally filtered by status.
func (r *SupportRepo) List(ctx context.Context, status string) ([]model.SupportTicket, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return listRows(ctx, r.db, scanTicket, ticketSelect+` ORDER BY FIELD(status, 'open', 'in_progress', 'resolved', 'closed'), created_at`)
	}
	return listRows(ctx, r.db, scanTicket, ticketSelect+` WHERE status = ? ORDER BY created_at`, status)
}

// Create opens a ticket with status open.
func (r *SupportRepo) Create(ctx context.Context, t *model.SupportTicket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = model.TicketOpen
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO support_tickets (id, customer_id, email, subject, message, status, priority) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CustomerID, strings.ToLower(strings.TrimSpace(t.Email)), t.Subject, t.Message, string(t.Status), string(t.Priority))
	return err
}

// UpdateStatus sets a ticket's status.
func (r *SupportRepo) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`UPDATE support_tickets SET status = ? WHERE id = ?`, string(status), id))
}
