// Package service implements the domain layer: the task lifecycle
// engine, account administration and the token award rule. Services
// validate input and role permissions locally, persist through the
// repository layer, and emit activity entries plus table-changed
// notifications after successful mutations. Every operation returns a
// typed error rather than panicking so handlers can map failures to
// precise HTTP responses.
package service

import (
	"errors"
	"fmt"
)

// ErrNotAllowed is the authorization failure: the actor's role (or
// identity, for self-service guards) does not permit the operation. It
// is raised locally, before any persistence call.
var ErrNotAllowed = errors.New("not allowed")

// ErrPayoutFailed is the partial-failure case on review-approve: the
// task reached Completed but the ledger write or the balance increment
// did not land. Callers must surface this distinctly and must never
// re-run the full transition, because the completion guard has already
// fired and a blind retry of the payout could double-award.
var ErrPayoutFailed = errors.New("task completed but token payout failed")

// ValidationError rejects bad input before anything is persisted. The
// message is safe to show verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
