// Package repository defines error types that are reused across multiple
// repositories.  Handlers translate them into HTTP statuses: ErrNotFound to
// 404, ErrForbidden to 403, ErrConflict and ErrInvalidTransition to 409.
package repository

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate unique key.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when a status change is not allowed from
// the row's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNoChange indicates an UPDATE matched no row or changed nothing.
var ErrNoChange = errors.New("no change")

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// affectedOrNotFound returns ErrNotFound when res touched no row.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
