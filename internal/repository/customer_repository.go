package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/smartfix/internal/model"
)

// CustomerRepo manages the `customers` table.
type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// GetByEmail returns the oldest customer registered with email.  Emails are
// unique-ish: historic duplicates exist, so the first row wins.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (model.Customer, error) {
	const q = `SELECT id, email, name, phone, created_at FROM customers
	           WHERE email = ? ORDER BY created_at ASC LIMIT 1`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))).
		Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt)
	return c, notFound(err)
}

// GetByID returns a single customer.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (model.Customer, error) {
	const q = `SELECT id, email, name, phone, created_at FROM customers WHERE id = ?`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt)
	return c, notFound(err)
}

// Create inserts c, assigning a new id when c.ID is empty.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (id, email, name, phone) VALUES (?, ?, ?, ?)`,
		c.ID, c.Email, c.Name, c.Phone)
	return err
}

// FindOrCreate resolves a customer by email and creates it from the given
// name and phone when no row exists.
func (r *CustomerRepo) FindOrCreate(ctx context.Context, email, name, phone string) (model.Customer, error) {
	c, err := r.GetByEmail(ctx, email)
	if err == nil {
		return c, nil
	}
	if err != ErrNotFound {
		return model.Customer{}, err
	}
	c = model.Customer{Email: email, Name: name, Phone: phone}
	if err := r.Create(ctx, &c); err != nil {
		return model.Customer{}, err
	}
	return c, nil
}
