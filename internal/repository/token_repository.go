package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens by SHA-256 hash.  The raw token never
// reaches the database.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db, now: time.Now} }

// Store records a freshly issued token.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp.UTC())
	return err
}

// Consume revokes a live token and returns its owner.  The row is locked
// while it is checked, so two refreshes racing on one token cannot both
// succeed.  Unknown, revoked and expired tokens yield ErrNotFound.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? FOR UPDATE`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return "", notFound(err)
	}
	if revokedAt.Valid || !r.now().UTC().Before(expiresAt) {
		return "", ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ?`, tokenHash); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke ends one session.  ErrNotFound means the token was unknown or
// already revoked.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`,
		tokenHash))
}

// RevokeAll ends every session of a user.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}

// PurgeExpired deletes tokens that expired before cutoff and reports how
// many rows went.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
