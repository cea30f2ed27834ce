package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// TaskRepo provides persistence for the tasks table. Lifecycle
// transitions are expressed as guarded single-statement updates: the
// precondition lives in the WHERE clause and a zero rows-affected
// result means the task was not in the required state. That keeps every
// transition race-safe without client-side locking, and makes repeated
// invocations (a double-click, a blind retry) fail the guard instead of
// applying twice.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskCols = `id, creator_id, assignee_id, title, description, deadline, token_value,
       status, director_approved, submitted_at, approved_at, submission_note,
       admin_feedback, original_deadline, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	var submittedAt, approvedAt, originalDeadline sql.NullTime
	var note, feedback sql.NullString
	err := row.Scan(&t.ID, &t.CreatorID, &t.AssigneeID, &t.Title, &t.Description,
		&t.Deadline, &t.TokenValue, &t.Status, &t.DirectorApproved,
		&submittedAt, &approvedAt, &note, &feedback, &originalDeadline,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	if submittedAt.Valid {
		v := submittedAt.Time
		t.SubmittedAt = &v
	}
	if approvedAt.Valid {
		v := approvedAt.Time
		t.ApprovedAt = &v
	}
	if note.Valid {
		v := note.String
		t.SubmissionNote = &v
	}
	if feedback.Valid {
		v := feedback.String
		t.AdminFeedback = &v
	}
	if originalDeadline.Valid {
		v := originalDeadline.Time
		t.OriginalDeadline = &v
	}
	return t, nil
}

// List returns the tasks visible to the viewer. Users see only their
// own assignments that a Director has signed off on; Admins and
// Directors see everything, including unapproved tasks.
func (r *TaskRepo) List(ctx context.Context, viewerID uint64, role string) ([]model.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks`
	var args []any
	if !model.CanReviewTasks(role) {
		q += ` WHERE assignee_id = ? AND director_approved = 1`
		args = append(args, viewerID)
	}
	q += ` ORDER BY deadline, id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID fetches a single task.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id = ? LIMIT 1`, id))
}

// Insert persists a new task and queries back the authoritative row.
func (r *TaskRepo) Insert(ctx context.Context, t *model.Task) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tasks (creator_id, assignee_id, title, description, deadline, token_value, status, director_approved)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.CreatorID, t.AssigneeID, t.Title, t.Description, t.Deadline, t.TokenValue,
		model.StatusPending, t.DirectorApproved)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	full, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = full
	return nil
}

// TaskPatch describes a partial edit. Nil fields are left untouched.
type TaskPatch struct {
	Title            *string
	Description      *string
	AssigneeID       *uint64
	Deadline         *time.Time
	TokenValue       *uint32
	DirectorApproved *bool
}

// BuildUpdate renders the patch into a SET clause and argument list.
// Exposed as a method so the query construction is testable without a
// database. Returns ok=false when the patch is empty.
func (p TaskPatch) BuildUpdate() (string, []any, bool) {
	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, *p.AssigneeID)
	}
	if p.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, *p.Deadline)
	}
	if p.TokenValue != nil {
		sets = append(sets, "token_value = ?")
		args = append(args, *p.TokenValue)
	}
	if p.DirectorApproved != nil {
		sets = append(sets, "director_approved = ?")
		args = append(args, *p.DirectorApproved)
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	return "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status = ?", args, true
}

// UpdateFields applies a partial edit, but only while the task is still
// Pending. Editing a reviewed task is a guard violation (ErrConflict).
func (r *TaskRepo) UpdateFields(ctx context.Context, id uint64, p TaskPatch) error {
	q, args, ok := p.BuildUpdate()
	if !ok {
		return nil
	}
	args = append(args, id, model.StatusPending)
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// Approve flips director_approved on a still-pending, unapproved task.
func (r *TaskRepo) Approve(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET director_approved = 1
         WHERE id = ? AND status = ? AND director_approved = 0`,
		id, model.StatusPending)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// Submit moves an approved pending task into review, stamped with the
// submission time and optional note. Only the assignee's id passes the
// guard, which is what makes mark-done self-service only.
func (r *TaskRepo) Submit(ctx context.Context, id, assigneeID uint64, note *string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET status = ?, submitted_at = ?, submission_note = ?
         WHERE id = ? AND status = ? AND director_approved = 1 AND assignee_id = ?`,
		model.StatusUnderReview, now, note, id, model.StatusPending, assigneeID)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// Complete finishes a task under review. Re-invoking on an already
// completed task fails the guard, which is what protects the payout
// from double-award.
func (r *TaskRepo) Complete(ctx context.Context, id uint64, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET status = ?, approved_at = ? WHERE id = ? AND status = ?`,
		model.StatusCompleted, now, id, model.StatusUnderReview)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// Reject moves a task to Rejected. Reviewers may reject work under
// review; a Director may additionally reject a still-unapproved pending
// task outright (allowPendingUnapproved).
func (r *TaskRepo) Reject(ctx context.Context, id uint64, allowPendingUnapproved bool) error {
	q := `UPDATE tasks SET status = ? WHERE id = ? AND (status = ?`
	args := []any{model.StatusRejected, id, model.StatusUnderReview}
	if allowPendingUnapproved {
		q += ` OR (status = ? AND director_approved = 0)`
		args = append(args, model.StatusPending)
	}
	q += `)`
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// Reassign puts a reviewed or rejected task back in play: status returns
// to Pending and the submission fields are cleared, while the director
// approval already granted is preserved.
func (r *TaskRepo) Reassign(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET status = ?, submitted_at = NULL, submission_note = NULL, approved_at = NULL
         WHERE id = ? AND status IN (?, ?)`,
		model.StatusPending, id, model.StatusUnderReview, model.StatusRejected)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// ExtendDeadline pushes the deadline out on a not-yet-completed task.
// original_deadline is assigned before deadline so the COALESCE sees the
// pre-extension value; it sticks on the first extension and survives
// later ones. The new deadline must be later than the current one,
// enforced in the guard.
func (r *TaskRepo) ExtendDeadline(ctx context.Context, id uint64, newDeadline time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET original_deadline = COALESCE(original_deadline, deadline), deadline = ?
         WHERE id = ? AND status <> ? AND deadline < ?`,
		newDeadline, id, model.StatusCompleted, newDeadline)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// SetFeedback attaches reviewer feedback to a task that has been
// submitted at least once. No status change.
func (r *TaskRepo) SetFeedback(ctx context.Context, id uint64, feedback string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET admin_feedback = ? WHERE id = ? AND status IN (?, ?, ?)`,
		feedback, id, model.StatusUnderReview, model.StatusCompleted, model.StatusRejected)
	if err != nil {
		return err
	}
	return r.checkGuard(ctx, res, id)
}

// DeleteCascade removes a task. Ledger and activity rows that reference
// it keep their history with the task reference nulled, matching the
// schema's ON DELETE SET NULL but done explicitly so the behavior does
// not depend on foreign-key configuration.
func (r *TaskRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`UPDATE points_ledger SET task_id = NULL WHERE task_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE activity_log SET task_id = NULL WHERE task_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// checkGuard distinguishes "task does not exist" (sql.ErrNoRows) from
// "task exists but was not in the required state" (ErrConflict) after a
// guarded update touched zero rows.
func (r *TaskRepo) checkGuard(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return sql.ErrNoRows
	}
	return ErrConflict
}
