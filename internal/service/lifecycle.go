package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
)

// Actor identifies the authenticated principal performing an operation,
// as stamped by the session middleware.
type Actor struct {
	ID   uint64
	Role string
}

// TaskStore is the persistence surface the lifecycle engine drives.
// *repository.TaskRepo satisfies it; tests substitute an in-memory fake.
type TaskStore interface {
	List(ctx context.Context, viewerID uint64, role string) ([]model.Task, error)
	GetByID(ctx context.Context, id uint64) (model.Task, error)
	Insert(ctx context.Context, t *model.Task) error
	UpdateFields(ctx context.Context, id uint64, p repository.TaskPatch) error
	Approve(ctx context.Context, id uint64) error
	Submit(ctx context.Context, id, assigneeID uint64, note *string, now time.Time) error
	Complete(ctx context.Context, id uint64, now time.Time) error
	Reject(ctx context.Context, id uint64, allowPendingUnapproved bool) error
	Reassign(ctx context.Context, id uint64) error
	ExtendDeadline(ctx context.Context, id uint64, newDeadline time.Time) error
	SetFeedback(ctx context.Context, id uint64, feedback string) error
	DeleteCascade(ctx context.Context, id uint64) error
}

// LedgerStore appends award rows.
type LedgerStore interface {
	Record(ctx context.Context, userID uint64, taskID *uint64, tokensAwarded uint32, reason string) error
}

// AccountStore is the slice of account persistence the engine needs:
// existence/role checks on assignees and the single atomic balance
// increment shared with direct gifting.
type AccountStore interface {
	GetByID(ctx context.Context, id uint64) (repository.Account, error)
	IncrementTokens(ctx context.Context, userID uint64, delta uint32) error
}

// ActivityStore appends audit entries for the feed.
type ActivityStore interface {
	Record(ctx context.Context, a model.Activity) error
}

// TaskService is the task lifecycle engine. It owns every transition of
// the task state machine: it checks the actor's role and the task's
// state, persists through guarded repository updates, computes and pays
// the token award on approval, and appends exactly one activity entry
// per successful transition. Activity and change notification are
// best-effort: their failures are logged but do not fail a mutation
// that already committed.
type TaskService struct {
	tasks     TaskStore
	ledger    LedgerStore
	accounts  AccountStore
	activity  ActivityStore
	notifier  Notifier
	cache     *TaskCache
	maxTokens uint32

	now func() time.Time // injected for tests
}

// NewTaskService wires the engine. notifier and cache may be nil.
func NewTaskService(tasks TaskStore, ledger LedgerStore, accounts AccountStore, activity ActivityStore, notifier Notifier, cache *TaskCache, maxTokens int) *TaskService {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &TaskService{
		tasks:     tasks,
		ledger:    ledger,
		accounts:  accounts,
		activity:  activity,
		notifier:  notifier,
		cache:     cache,
		maxTokens: uint32(maxTokens),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	AssigneeID  uint64
	Title       string
	Description string
	Deadline    time.Time
	TokenValue  uint32
}

// EditTaskInput carries a partial edit; nil fields are untouched.
type EditTaskInput struct {
	Title       *string
	Description *string
	AssigneeID  *uint64
	Deadline    *time.Time
	TokenValue  *uint32
}

// List returns the tasks visible to the actor, served from the cache
// when fresh. force bypasses the cache and re-fetches.
func (s *TaskService) List(ctx context.Context, actor Actor, force bool) ([]model.Task, error) {
	scope := s.scope(actor)
	if !force {
		if tasks, ok := s.cache.Get(ctx, scope); ok {
			return tasks, nil
		}
	}
	tasks, err := s.tasks.List(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, scope, tasks)
	return tasks, nil
}

// Get returns a single task if the actor may see it. For Users the
// approval gate applies: a task that exists but is not yet
// director-approved, or belongs to someone else, is reported as not
// found rather than forbidden so its existence is not leaked.
func (s *TaskService) Get(ctx context.Context, actor Actor, id uint64) (model.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !model.CanReviewTasks(actor.Role) {
		if t.AssigneeID != actor.ID || !t.DirectorApproved {
			return model.Task{}, sql.ErrNoRows
		}
	}
	return t, nil
}

// Create makes a new Pending task. Director-created tasks are approved
// immediately; Admin-created tasks start unapproved and stay invisible
// to the assignee until a Director signs off.
func (s *TaskService) Create(ctx context.Context, actor Actor, in CreateTaskInput) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if in.Title == "" {
		return model.Task{}, invalid("title", "required")
	}
	if in.TokenValue > s.maxTokens {
		return model.Task{}, invalid("token_value", fmt.Sprintf("must be at most %d", s.maxTokens))
	}
	now := s.now()
	if !in.Deadline.After(now) {
		return model.Task{}, invalid("deadline", "must be in the future")
	}
	assignee, err := s.accounts.GetByID(ctx, in.AssigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, invalid("assignee_id", "unknown user")
		}
		return model.Task{}, err
	}

	t := model.Task{
		CreatorID:        actor.ID,
		AssigneeID:       in.AssigneeID,
		Title:            in.Title,
		Description:      in.Description,
		Deadline:         in.Deadline,
		TokenValue:       in.TokenValue,
		Status:           model.StatusPending,
		DirectorApproved: actor.Role == model.RoleDirector,
	}
	if err := s.tasks.Insert(ctx, &t); err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTaskCreated,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("created task %q for %s", t.Title, assignee.EmployeeCode),
	})
	s.changed(ctx, t)
	return t, nil
}

// DirectorApprove flips the approval gate on an Admin-created task,
// making it visible to its assignee. Director only.
func (s *TaskService) DirectorApprove(ctx context.Context, actor Actor, id uint64) (model.Task, error) {
	if actor.Role != model.RoleDirector {
		return model.Task{}, ErrNotAllowed
	}
	if err := s.tasks.Approve(ctx, id); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionDirectorApprovedTask,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("approved task %q for assignment", t.Title),
	})
	s.changed(ctx, t)
	return t, nil
}

// MarkDone is the assignee's submit: an approved pending task moves to
// UnderReview with the submission time and optional note recorded. Only
// Users submit, and only on their own task (the repository guard binds
// the assignee id).
func (s *TaskService) MarkDone(ctx context.Context, actor Actor, id uint64, note *string) (model.Task, error) {
	if actor.Role != model.RoleUser {
		return model.Task{}, ErrNotAllowed
	}
	if err := s.tasks.Submit(ctx, id, actor.ID, note, s.now()); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID: actor.ID,
		Action:  model.ActionTaskMarkedDone,
		TaskID:  &t.ID,
		Message: fmt.Sprintf("submitted task %q for review", t.Title),
	})
	s.changed(ctx, t)
	return t, nil
}

// ReviewApprove completes a task under review and pays the award.
//
// Ordering matters here. The status flip runs first because its guard
// (UnderReview only) is what makes the whole transition idempotent: a
// second approval of the same task fails the guard before any money
// moves. The award is then computed from the row re-read AFTER the
// flip: once the task is Completed no deadline extension or edit can
// touch it, so that read is authoritative and a racing extension
// cannot pay against a stale deadline. If any payout step fails after
// the status write landed, the error wraps ErrPayoutFailed so callers
// see "completed but not paid" rather than a generic failure, and
// nothing is retried automatically: re-running the transition would
// fail the guard, and re-running just the increment without checking
// could pay twice.
func (s *TaskService) ReviewApprove(ctx context.Context, actor Actor, id uint64) (model.Task, Award, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, Award{}, ErrNotAllowed
	}
	now := s.now()
	if err := s.tasks.Complete(ctx, id, now); err != nil {
		return model.Task{}, Award{}, err
	}
	done, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, Award{}, fmt.Errorf("%w: reload after completion: %v", ErrPayoutFailed, err)
	}
	award := CalculateAward(done.TokenValue, done.Deadline, now)

	if err := s.ledger.Record(ctx, done.AssigneeID, &done.ID, award.Total, award.Reason); err != nil {
		return model.Task{}, award, fmt.Errorf("%w: ledger write: %v", ErrPayoutFailed, err)
	}
	if award.Total > 0 {
		if err := s.accounts.IncrementTokens(ctx, done.AssigneeID, award.Total); err != nil {
			return model.Task{}, award, fmt.Errorf("%w: balance increment: %v", ErrPayoutFailed, err)
		}
	}

	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTaskApproved,
		TargetUserID: &done.AssigneeID,
		TaskID:       &done.ID,
		Message:      fmt.Sprintf("approved task %q: %s", done.Title, award.Reason),
	})
	s.changed(ctx, done)
	return done, award, nil
}

// ReviewReject rejects submitted work. A Director may additionally
// reject a still-unapproved pending task, which is the veto side of the
// approval gate.
func (s *TaskService) ReviewReject(ctx context.Context, actor Actor, id uint64) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if err := s.tasks.Reject(ctx, id, actor.Role == model.RoleDirector); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTaskRejected,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("rejected task %q", t.Title),
	})
	s.changed(ctx, t)
	return t, nil
}

// Reassign puts a reviewed or rejected task back to Pending for another
// attempt, clearing the previous submission but keeping the director
// approval already granted.
func (s *TaskService) Reassign(ctx context.Context, actor Actor, id uint64) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if err := s.tasks.Reassign(ctx, id); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTaskReassigned,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("sent task %q back for another attempt", t.Title),
	})
	s.changed(ctx, t)
	return t, nil
}

// Edit updates a still-pending task. An Admin's edit drops the director
// approval so the changed task goes through the gate again; a
// Director's edit leaves the approval state alone.
func (s *TaskService) Edit(ctx context.Context, actor Actor, id uint64, in EditTaskInput) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if in.Title != nil && *in.Title == "" {
		return model.Task{}, invalid("title", "required")
	}
	if in.TokenValue != nil && *in.TokenValue > s.maxTokens {
		return model.Task{}, invalid("token_value", fmt.Sprintf("must be at most %d", s.maxTokens))
	}
	if in.Deadline != nil && !in.Deadline.After(s.now()) {
		return model.Task{}, invalid("deadline", "must be in the future")
	}
	if in.AssigneeID != nil {
		if _, err := s.accounts.GetByID(ctx, *in.AssigneeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Task{}, invalid("assignee_id", "unknown user")
			}
			return model.Task{}, err
		}
	}
	before, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	patch := repository.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		Deadline:    in.Deadline,
		TokenValue:  in.TokenValue,
	}
	if actor.Role == model.RoleAdmin {
		f := false
		patch.DirectorApproved = &f
	}
	if err := s.tasks.UpdateFields(ctx, id, patch); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	action := model.ActionCustomMessage
	msg := fmt.Sprintf("updated task %q", t.Title)
	if in.AssigneeID != nil && *in.AssigneeID != before.AssigneeID {
		action = model.ActionTaskAssigned
		msg = fmt.Sprintf("assigned task %q to a new owner", t.Title)
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       action,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      msg,
	})
	s.changed(ctx, t)
	return t, nil
}

// ExtendDeadline pushes the deadline of a not-yet-completed task out.
// The pre-extension deadline is preserved in original_deadline the
// first time only.
func (s *TaskService) ExtendDeadline(ctx context.Context, actor Actor, id uint64, newDeadline time.Time) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if !newDeadline.After(s.now()) {
		return model.Task{}, invalid("deadline", "must be in the future")
	}
	if err := s.tasks.ExtendDeadline(ctx, id, newDeadline); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionDeadlineExtended,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("extended deadline of task %q to %s", t.Title, newDeadline.UTC().Format(time.RFC3339)),
	})
	s.changed(ctx, t)
	return t, nil
}

// GiveFeedback attaches reviewer feedback to a submitted, completed or
// rejected task without changing its status.
func (s *TaskService) GiveFeedback(ctx context.Context, actor Actor, id uint64, feedback string) (model.Task, error) {
	if !model.CanReviewTasks(actor.Role) {
		return model.Task{}, ErrNotAllowed
	}
	if feedback == "" {
		return model.Task{}, invalid("feedback", "required")
	}
	if err := s.tasks.SetFeedback(ctx, id, feedback); err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionCustomMessage,
		TargetUserID: &t.AssigneeID,
		TaskID:       &t.ID,
		Message:      fmt.Sprintf("left feedback on task %q", t.Title),
	})
	s.changed(ctx, t)
	return t, nil
}

// Delete removes a task in any status. Ledger and activity rows keep
// their history with the task reference nulled; the activity entry for
// the deletion itself carries no task id since the row is gone.
func (s *TaskService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if !model.CanReviewTasks(actor.Role) {
		return ErrNotAllowed
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTaskDeleted,
		TargetUserID: &t.AssigneeID,
		Message:      fmt.Sprintf("deleted task %q", t.Title),
	})
	s.cache.Invalidate(ctx)
	if s.notifier != nil {
		s.notifier.TableChanged(ctx, "tasks")
	}
	return nil
}

// scope returns the cache scope for the actor's view.
func (s *TaskService) scope(actor Actor) string {
	if model.CanReviewTasks(actor.Role) {
		return StaffScope
	}
	return UserScope(actor.ID)
}

// emit appends one activity entry, best-effort: the mutation it
// describes has already committed, so a failed audit write is logged
// and swallowed rather than turning success into failure.
func (s *TaskService) emit(ctx context.Context, a model.Activity) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, a); err != nil {
		log.Printf("activity: record %s failed: %v", a.Action, err)
		return
	}
	if s.notifier != nil {
		s.notifier.TableChanged(ctx, "activity")
	}
}

// changed reconciles the authoritative row into the relevant cache
// scopes and notifies watchers that the tasks table moved.
func (s *TaskService) changed(ctx context.Context, t model.Task) {
	s.cache.Merge(ctx, StaffScope, t)
	if t.DirectorApproved {
		s.cache.Merge(ctx, UserScope(t.AssigneeID), t)
	} else {
		// The assignee must not see an unapproved task; their cached
		// list may hold a stale approved copy, so drop the whole scope.
		s.cache.Invalidate(ctx)
	}
	if s.notifier != nil {
		s.notifier.TableChanged(ctx, "tasks")
	}
}
