package repository

import (
	"context"
	"database/sql"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// LedgerRepo appends to and reads the points_ledger table. The table is
// append-only: rows are written once per task-completion award and never
// updated. Balance mutation is deliberately not here; it lives on
// UserRepo.IncrementTokens so there is exactly one atomic increment path
// shared by task approvals and direct gifts.
type LedgerRepo struct{ DB *sql.DB }

func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{DB: db} }

// Record appends one award row. tokensAwarded may be zero (a late
// completion under the zero-payout edge still leaves an audit trail).
func (r *LedgerRepo) Record(ctx context.Context, userID uint64, taskID *uint64, tokensAwarded uint32, reason string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO points_ledger (user_id, task_id, tokens_awarded, reason) VALUES (?, ?, ?, ?)`,
		userID, taskID, tokensAwarded, reason)
	return err
}

// ListByUser returns a user's award history, newest first.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, task_id, tokens_awarded, reason, created_at
         FROM points_ledger WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		var taskID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &taskID, &e.TokensAwarded, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			v := uint64(taskID.Int64)
			e.TaskID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
