package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// ResetRepo persists password reset requests. Requests are created by
// an unauthenticated submission path and resolved only by Directors, so
// resolution is a guarded update: resolving an already-resolved request
// fails with ErrConflict instead of overwriting the first resolution.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Create files a new pending request and returns its opaque reference.
func (r *ResetRepo) Create(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ref := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO password_reset_requests (reference, email, status) VALUES (?, ?, ?)`,
		ref, email, model.ResetPending)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// GetByID fetches a single request.
func (r *ResetRepo) GetByID(ctx context.Context, id uint64) (model.PasswordResetRequest, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT id, reference, email, status, resolved_by, created_at, resolved_at
         FROM password_reset_requests WHERE id = ? LIMIT 1`, id))
}

// ListPending returns unresolved requests, oldest first so the queue is
// worked in arrival order.
func (r *ResetRepo) ListPending(ctx context.Context) ([]model.PasswordResetRequest, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, reference, email, status, resolved_by, created_at, resolved_at
         FROM password_reset_requests WHERE status = ? ORDER BY created_at, id`,
		model.ResetPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PasswordResetRequest{}
	for rows.Next() {
		req, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Resolve marks a pending request approved or dismissed. The status
// guard makes resolution first-write-wins.
func (r *ResetRepo) Resolve(ctx context.Context, id, resolverID uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE password_reset_requests SET status = ?, resolved_by = ?, resolved_at = NOW()
         WHERE id = ? AND status = ?`,
		status, resolverID, id, model.ResetPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM password_reset_requests WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return sql.ErrNoRows
		}
		return ErrConflict
	}
	return nil
}

func (r *ResetRepo) scanOne(row interface{ Scan(...any) error }) (model.PasswordResetRequest, error) {
	var req model.PasswordResetRequest
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime
	err := row.Scan(&req.ID, &req.Reference, &req.Email, &req.Status, &resolvedBy, &req.CreatedAt, &resolvedAt)
	if err != nil {
		return model.PasswordResetRequest{}, err
	}
	if resolvedBy.Valid {
		v := uint64(resolvedBy.Int64)
		req.ResolvedBy = &v
	}
	if resolvedAt.Valid {
		v := resolvedAt.Time
		req.ResolvedAt = &v
	}
	return req, nil
}
