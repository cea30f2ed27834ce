package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// ActivityRepo appends to and reads the activity_log table, the audit
// trail the dashboard's feed renders. The lifecycle service writes
// exactly one row per successful transition; the feed reads newest
// first, optionally filtered to entries after a client-supplied
// unread-since timestamp.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// Record appends one activity row.
func (r *ActivityRepo) Record(ctx context.Context, a model.Activity) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO activity_log (actor_id, action, target_user_id, task_id, message) VALUES (?, ?, ?, ?, ?)`,
		a.ActorID, string(a.Action), a.TargetUserID, a.TaskID, a.Message)
	return err
}

// ListRecent returns entries newest first. When since is non-nil only
// entries created strictly after it are returned, which is how clients
// fetch their unread tail.
func (r *ActivityRepo) ListRecent(ctx context.Context, since *time.Time, limit int) ([]model.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, actor_id, action, target_user_id, task_id, message, created_at FROM activity_log`
	var args []any
	if since != nil {
		q += ` WHERE created_at > ?`
		args = append(args, *since)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		var action string
		var target, task sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ActorID, &action, &target, &task, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Action = model.ActionType(action)
		if target.Valid {
			v := uint64(target.Int64)
			a.TargetUserID = &v
		}
		if task.Valid {
			v := uint64(task.Int64)
			a.TaskID = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
