package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
	"github.com/revanthm1902/task-token-tracker/internal/utils"
)

// UserAdminStore is the account persistence surface used by
// administration operations. *repository.UserRepo satisfies it.
type UserAdminStore interface {
	GetByID(ctx context.Context, id uint64) (repository.Account, error)
	GetByEmail(ctx context.Context, email string) (repository.Account, error)
	List(ctx context.Context) ([]repository.Account, error)
	Provision(ctx context.Context, email, passwordHash, fullName, role, prefix string, phone *string) (repository.Account, error)
	UpdatePassword(ctx context.Context, userID uint64, passwordHash string, temporary bool) error
	DeleteCascade(ctx context.Context, userID uint64) error
	IncrementTokens(ctx context.Context, userID uint64, delta uint32) error
}

// ResetStore persists password reset requests.
type ResetStore interface {
	Create(ctx context.Context, email string) (string, error)
	GetByID(ctx context.Context, id uint64) (model.PasswordResetRequest, error)
	ListPending(ctx context.Context) ([]model.PasswordResetRequest, error)
	Resolve(ctx context.Context, id, resolverID uint64, status string) error
}

// AccountService orchestrates the privileged account operations:
// provisioning, deletion, password resets and direct token gifts. The
// heavy lifting (transactions, cascades, the atomic increment) lives in
// the repository layer; this service contributes the role guards, input
// validation and activity emission.
type AccountService struct {
	users      UserAdminStore
	resets     ResetStore
	activity   ActivityStore
	notifier   Notifier
	cache      *TaskCache
	bcryptCost int
	codePrefix string
}

// NewAccountService wires the service. notifier and cache may be nil.
func NewAccountService(users UserAdminStore, resets ResetStore, activity ActivityStore, notifier Notifier, cache *TaskCache, bcryptCost int, codePrefix string) *AccountService {
	if codePrefix == "" {
		codePrefix = "EMP"
	}
	return &AccountService{
		users:      users,
		resets:     resets,
		activity:   activity,
		notifier:   notifier,
		cache:      cache,
		bcryptCost: bcryptCost,
		codePrefix: codePrefix,
	}
}

// Bounds on a direct token gift.
const (
	MinGiftTokens = 1
	MaxGiftTokens = 10000
)

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Email        string
	TempPassword string
	FullName     string
	Role         string
	Phone        *string
}

// CreateUser provisions an identity plus profile. Directors may create
// Admins and Users; Admins may create Users only; nobody creates a
// Director this way. A half-provisioned identity left by an earlier
// failure is completed rather than rejected; a fully provisioned email
// is a conflict.
func (s *AccountService) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (repository.Account, error) {
	if !model.ValidRole(in.Role) || !model.CanProvisionRole(actor.Role, in.Role) {
		return repository.Account{}, ErrNotAllowed
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return repository.Account{}, invalid("email", "required")
	}
	if len(in.TempPassword) < 8 {
		return repository.Account{}, invalid("temp_password", "must be at least 8 characters")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return repository.Account{}, invalid("full_name", "required")
	}
	hash, err := utils.HashPassword(in.TempPassword, s.bcryptCost)
	if err != nil {
		return repository.Account{}, err
	}
	acct, err := s.users.Provision(ctx, in.Email, hash, in.FullName, in.Role, s.codePrefix, in.Phone)
	if err != nil {
		return repository.Account{}, err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionUserAdded,
		TargetUserID: &acct.UserID,
		Message:      fmt.Sprintf("added %s (%s) as %s", acct.FullName, acct.EmployeeCode, acct.Role),
	})
	s.notify(ctx, "users")
	return acct, nil
}

// DeleteUser removes an account and everything referencing it.
// Directors may delete Admins and Users but never another Director;
// Admins may delete Users only; nobody deletes themselves.
func (s *AccountService) DeleteUser(ctx context.Context, actor Actor, targetID uint64) error {
	if actor.ID == targetID {
		return ErrNotAllowed
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !model.CanDeleteRole(actor.Role, target.Role) {
		return ErrNotAllowed
	}
	if err := s.users.DeleteCascade(ctx, targetID); err != nil {
		return err
	}
	// No target reference on the entry: the row it would point at is gone.
	s.emit(ctx, model.Activity{
		ActorID: actor.ID,
		Action:  model.ActionCustomMessage,
		Message: fmt.Sprintf("removed account %s (%s)", target.FullName, target.EmployeeCode),
	})
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.notify(ctx, "users", "tasks")
	return nil
}

// SubmitResetRequest files a password reset from the unauthenticated
// path and returns an opaque reference for the submitter. No activity
// entry is written here; the feed records the Director's resolution,
// not the anonymous request.
func (s *AccountService) SubmitResetRequest(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", invalid("email", "required")
	}
	return s.resets.Create(ctx, email)
}

// ListPendingResets returns the unresolved reset queue. Director only.
func (s *AccountService) ListPendingResets(ctx context.Context, actor Actor) ([]model.PasswordResetRequest, error) {
	if actor.Role != model.RoleDirector {
		return nil, ErrNotAllowed
	}
	return s.resets.ListPending(ctx)
}

// ResetPassword sets a new temporary password on the target account and
// marks the originating request approved. Director only. The target
// lands with temp_password set, forcing a change on next sign-in.
func (s *AccountService) ResetPassword(ctx context.Context, actor Actor, targetID uint64, newPassword string, requestID uint64) error {
	if actor.Role != model.RoleDirector {
		return ErrNotAllowed
	}
	if len(newPassword) < 8 {
		return invalid("new_password", "must be at least 8 characters")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, targetID, hash, true); err != nil {
		return err
	}
	if requestID != 0 {
		if err := s.resets.Resolve(ctx, requestID, actor.ID, model.ResetApproved); err != nil {
			return err
		}
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionPasswordResetRequest,
		TargetUserID: &target.UserID,
		Message:      fmt.Sprintf("reset password for %s", target.EmployeeCode),
	})
	s.notify(ctx, "users")
	return nil
}

// DismissResetRequest closes a pending request without touching any
// account. Director only.
func (s *AccountService) DismissResetRequest(ctx context.Context, actor Actor, requestID uint64) error {
	if actor.Role != model.RoleDirector {
		return ErrNotAllowed
	}
	req, err := s.resets.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.resets.Resolve(ctx, requestID, actor.ID, model.ResetDismissed); err != nil {
		return err
	}
	s.emit(ctx, model.Activity{
		ActorID: actor.ID,
		Action:  model.ActionPasswordResetRequest,
		Message: fmt.Sprintf("dismissed password reset request for %s", req.Email),
	})
	return nil
}

// GiveTokens credits tokens directly to an Admin or User. The gift uses
// the same atomic increment as task payouts but deliberately writes no
// ledger row: the activity entry is what marks these tokens as gifted
// rather than task-earned.
func (s *AccountService) GiveTokens(ctx context.Context, actor Actor, targetID uint64, amount int, reason string) error {
	if amount < MinGiftTokens || amount > MaxGiftTokens {
		return invalid("amount", fmt.Sprintf("must be between %d and %d", MinGiftTokens, MaxGiftTokens))
	}
	if strings.TrimSpace(reason) == "" {
		return invalid("reason", "required")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !model.CanGiftTokensTo(actor.Role, target.Role) {
		return ErrNotAllowed
	}
	if err := s.users.IncrementTokens(ctx, targetID, uint32(amount)); err != nil {
		return err
	}
	s.emit(ctx, model.Activity{
		ActorID:      actor.ID,
		Action:       model.ActionTokensGiven,
		TargetUserID: &target.UserID,
		Message:      fmt.Sprintf("gave %d tokens to %s: %s", amount, target.EmployeeCode, reason),
	})
	s.notify(ctx, "users")
	return nil
}

// ChangeOwnPassword lets any authenticated account replace its own
// password after proving the current one. Clears the temporary flag.
func (s *AccountService) ChangeOwnPassword(ctx context.Context, actor Actor, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return invalid("new_password", "must be at least 8 characters")
	}
	acct, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(acct.PasswordHash, currentPassword) {
		return ErrNotAllowed
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, actor.ID, hash, false)
}

// ListUsers returns every account. Admin and Director only.
func (s *AccountService) ListUsers(ctx context.Context, actor Actor) ([]repository.Account, error) {
	if !model.CanReviewTasks(actor.Role) {
		return nil, ErrNotAllowed
	}
	return s.users.List(ctx)
}

// Me returns the actor's own account.
func (s *AccountService) Me(ctx context.Context, actor Actor) (repository.Account, error) {
	return s.users.GetByID(ctx, actor.ID)
}

func (s *AccountService) emit(ctx context.Context, a model.Activity) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, a); err != nil {
		log.Printf("activity: record %s failed: %v", a.Action, err)
		return
	}
	s.notify(ctx, "activity")
}

func (s *AccountService) notify(ctx context.Context, tables ...string) {
	if s.notifier == nil {
		return
	}
	for _, t := range tables {
		s.notifier.TableChanged(ctx, t)
	}
}
