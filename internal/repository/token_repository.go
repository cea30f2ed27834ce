package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh-token state in the refresh_tokens table.
// Only SHA-256 hashes are stored; raw tokens exist client-side only.
// Revocation is a timestamp, not a delete, so a replayed token after
// rotation is distinguishable from one that never existed.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a freshly issued token hash with its expiry.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh resolves a token hash to its identity id. Revoked and
// expired tokens both come back as sql.ErrNoRows so the caller cannot
// tell the cases apart (and neither can a probing client).
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash retires one token. Idempotent: revoking an
// already-revoked token touches nothing and returns nil.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = ? AND revoked_at IS NULL`,
		tokenHash)
	return err
}

// RevokeAllForUser retires every live session of one account, used
// after a password change or reset.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}
