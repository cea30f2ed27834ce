package service

// In-memory stand-ins for the persistence interfaces. They reproduce
// the guard semantics of the SQL layer (zero rows on a failed
// precondition distinguishes missing from wrong-state) so the lifecycle
// rules can be exercised without a database.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
)

type fakeTaskStore struct {
	tasks  map[uint64]*model.Task
	nextID uint64
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[uint64]*model.Task{}, nextID: 1}
}

func (f *fakeTaskStore) List(_ context.Context, viewerID uint64, role string) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range f.tasks {
		if !model.CanReviewTasks(role) && (t.AssigneeID != viewerID || !t.DirectorApproved) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uint64) (model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, sql.ErrNoRows
	}
	return *t, nil
}

func (f *fakeTaskStore) Insert(_ context.Context, t *model.Task) error {
	t.ID = f.nextID
	f.nextID++
	t.Status = model.StatusPending
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

// guard mirrors checkGuard in the SQL layer.
func (f *fakeTaskStore) guard(id uint64, ok func(*model.Task) bool, apply func(*model.Task)) error {
	t, exists := f.tasks[id]
	if !exists {
		return sql.ErrNoRows
	}
	if !ok(t) {
		return repository.ErrConflict
	}
	apply(t)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeTaskStore) UpdateFields(_ context.Context, id uint64, p repository.TaskPatch) error {
	return f.guard(id,
		func(t *model.Task) bool { return t.Status == model.StatusPending },
		func(t *model.Task) {
			if p.Title != nil {
				t.Title = *p.Title
			}
			if p.Description != nil {
				t.Description = *p.Description
			}
			if p.AssigneeID != nil {
				t.AssigneeID = *p.AssigneeID
			}
			if p.Deadline != nil {
				t.Deadline = *p.Deadline
			}
			if p.TokenValue != nil {
				t.TokenValue = *p.TokenValue
			}
			if p.DirectorApproved != nil {
				t.DirectorApproved = *p.DirectorApproved
			}
		})
}

func (f *fakeTaskStore) Approve(_ context.Context, id uint64) error {
	return f.guard(id,
		func(t *model.Task) bool { return t.Status == model.StatusPending && !t.DirectorApproved },
		func(t *model.Task) { t.DirectorApproved = true })
}

func (f *fakeTaskStore) Submit(_ context.Context, id, assigneeID uint64, note *string, now time.Time) error {
	return f.guard(id,
		func(t *model.Task) bool {
			return t.Status == model.StatusPending && t.DirectorApproved && t.AssigneeID == assigneeID
		},
		func(t *model.Task) {
			t.Status = model.StatusUnderReview
			n := now
			t.SubmittedAt = &n
			t.SubmissionNote = note
		})
}

func (f *fakeTaskStore) Complete(_ context.Context, id uint64, now time.Time) error {
	return f.guard(id,
		func(t *model.Task) bool { return t.Status == model.StatusUnderReview },
		func(t *model.Task) {
			t.Status = model.StatusCompleted
			n := now
			t.ApprovedAt = &n
		})
}

func (f *fakeTaskStore) Reject(_ context.Context, id uint64, allowPendingUnapproved bool) error {
	return f.guard(id,
		func(t *model.Task) bool {
			if t.Status == model.StatusUnderReview {
				return true
			}
			return allowPendingUnapproved && t.Status == model.StatusPending && !t.DirectorApproved
		},
		func(t *model.Task) { t.Status = model.StatusRejected })
}

func (f *fakeTaskStore) Reassign(_ context.Context, id uint64) error {
	return f.guard(id,
		func(t *model.Task) bool {
			return t.Status == model.StatusUnderReview || t.Status == model.StatusRejected
		},
		func(t *model.Task) {
			t.Status = model.StatusPending
			t.SubmittedAt = nil
			t.SubmissionNote = nil
			t.ApprovedAt = nil
		})
}

func (f *fakeTaskStore) ExtendDeadline(_ context.Context, id uint64, newDeadline time.Time) error {
	return f.guard(id,
		func(t *model.Task) bool {
			return t.Status != model.StatusCompleted && t.Deadline.Before(newDeadline)
		},
		func(t *model.Task) {
			if t.OriginalDeadline == nil {
				d := t.Deadline
				t.OriginalDeadline = &d
			}
			t.Deadline = newDeadline
		})
}

func (f *fakeTaskStore) SetFeedback(_ context.Context, id uint64, feedback string) error {
	return f.guard(id,
		func(t *model.Task) bool { return t.Status != model.StatusPending },
		func(t *model.Task) { t.AdminFeedback = &feedback })
}

func (f *fakeTaskStore) DeleteCascade(_ context.Context, id uint64) error {
	if _, ok := f.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.tasks, id)
	return nil
}

type ledgerRow struct {
	UserID        uint64
	TaskID        *uint64
	TokensAwarded uint32
	Reason        string
}

type fakeLedger struct {
	rows []ledgerRow
	fail error // next Record returns this when set
}

func (f *fakeLedger) Record(_ context.Context, userID uint64, taskID *uint64, tokensAwarded uint32, reason string) error {
	if f.fail != nil {
		return f.fail
	}
	f.rows = append(f.rows, ledgerRow{UserID: userID, TaskID: taskID, TokensAwarded: tokensAwarded, Reason: reason})
	return nil
}

type fakeAccounts struct {
	accounts map[uint64]*repository.Account
	nextID   uint64
	incrFail error // next IncrementTokens returns this when set
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[uint64]*repository.Account{}, nextID: 1}
}

func (f *fakeAccounts) add(role string) repository.Account {
	id := f.nextID
	f.nextID++
	a := &repository.Account{
		UserID:       id,
		Email:        fmt.Sprintf("user%d@example.com", id),
		EmployeeCode: fmt.Sprintf("EMP-2026-%03d", id),
		FullName:     fmt.Sprintf("Person %d", id),
		Role:         role,
	}
	f.accounts[id] = a
	return *a
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (repository.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return repository.Account{}, sql.ErrNoRows
	}
	return *a, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (repository.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return *a, nil
		}
	}
	return repository.Account{}, sql.ErrNoRows
}

func (f *fakeAccounts) List(_ context.Context) ([]repository.Account, error) {
	out := []repository.Account{}
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAccounts) Provision(_ context.Context, email, passwordHash, fullName, role, prefix string, _ *string) (repository.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return repository.Account{}, repository.ErrProfileExists
		}
	}
	id := f.nextID
	f.nextID++
	a := &repository.Account{
		UserID:       id,
		Email:        email,
		PasswordHash: passwordHash,
		EmployeeCode: fmt.Sprintf("%s-2026-%03d", prefix, id),
		FullName:     fullName,
		Role:         role,
		TempPassword: true,
	}
	f.accounts[id] = a
	return *a, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, userID uint64, passwordHash string, temporary bool) error {
	a, ok := f.accounts[userID]
	if !ok {
		return sql.ErrNoRows
	}
	a.PasswordHash = passwordHash
	a.TempPassword = temporary
	return nil
}

func (f *fakeAccounts) DeleteCascade(_ context.Context, userID uint64) error {
	if _, ok := f.accounts[userID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.accounts, userID)
	return nil
}

func (f *fakeAccounts) IncrementTokens(_ context.Context, userID uint64, delta uint32) error {
	if f.incrFail != nil {
		return f.incrFail
	}
	a, ok := f.accounts[userID]
	if !ok {
		return sql.ErrNoRows
	}
	a.TotalTokens += delta
	return nil
}

type fakeActivity struct {
	entries []model.Activity
}

func (f *fakeActivity) Record(_ context.Context, a model.Activity) error {
	if !a.Action.Valid() {
		return errors.New("unknown action type")
	}
	f.entries = append(f.entries, a)
	return nil
}

// count returns how many recorded entries carry the given action.
func (f *fakeActivity) count(action model.ActionType) int {
	n := 0
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type fakeResets struct {
	requests map[uint64]*model.PasswordResetRequest
	nextID   uint64
}

func newFakeResets() *fakeResets {
	return &fakeResets{requests: map[uint64]*model.PasswordResetRequest{}, nextID: 1}
}

func (f *fakeResets) Create(_ context.Context, email string) (string, error) {
	id := f.nextID
	f.nextID++
	ref := fmt.Sprintf("ref-%d", id)
	f.requests[id] = &model.PasswordResetRequest{
		ID: id, Reference: ref, Email: strings.ToLower(email),
		Status: model.ResetPending, CreatedAt: time.Now().UTC(),
	}
	return ref, nil
}

func (f *fakeResets) GetByID(_ context.Context, id uint64) (model.PasswordResetRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return model.PasswordResetRequest{}, sql.ErrNoRows
	}
	return *r, nil
}

func (f *fakeResets) ListPending(_ context.Context) ([]model.PasswordResetRequest, error) {
	out := []model.PasswordResetRequest{}
	for _, r := range f.requests {
		if r.Status == model.ResetPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResets) Resolve(_ context.Context, id, resolverID uint64, status string) error {
	r, ok := f.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	if r.Status != model.ResetPending {
		return repository.ErrConflict
	}
	r.Status = status
	r.ResolvedBy = &resolverID
	now := time.Now().UTC()
	r.ResolvedAt = &now
	return nil
}

type fakeNotifier struct {
	tables []string
}

func (f *fakeNotifier) TableChanged(_ context.Context, table string) {
	f.tables = append(f.tables, table)
}
