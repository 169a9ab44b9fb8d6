package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/smartfix/internal/database"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Email    string
	Password string
	Role     string
	FullName string
	Phone    string
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, full_name, phone) VALUES (?,?,?,?,?,?)",
		id, email, hash, in.Role, strings.TrimSpace(in.FullName), strings.TrimSpace(in.Phone))
	if err != nil {
		if database.IsDuplicateKey(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

const userColumns = "id,email,password_hash,role,full_name,phone,is_active,created_at,updated_at"

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}
