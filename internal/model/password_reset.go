package model

import "time"

// Password reset request states.  Requests arrive through an
// unauthenticated submission path and are resolved only by a Director.
const (
	ResetPending   = "PENDING"
	ResetApproved  = "APPROVED"
	ResetDismissed = "DISMISSED"
)

// PasswordResetRequest is a row in the `password_reset_requests` table.
//
// Fields:
//
//	ID         – primary key identifier.
//	Reference  – opaque UUID handed back to the submitter so support can
//	             correlate a request without exposing row ids.
//	Email      – email the request was filed for; not required to match
//	             an existing account (the submitter is unauthenticated).
//	Status     – PENDING, APPROVED or DISMISSED.
//	ResolvedBy – Director who resolved the request (nullable).
//	CreatedAt  – submission timestamp.
//	ResolvedAt – resolution timestamp (nullable).
type PasswordResetRequest struct {
	ID         uint64     // password_reset_requests.id
	Reference  string     // password_reset_requests.reference
	Email      string     // password_reset_requests.email
	Status     string     // password_reset_requests.status
	ResolvedBy *uint64    // password_reset_requests.resolved_by (nullable)
	CreatedAt  time.Time  // password_reset_requests.created_at
	ResolvedAt *time.Time // password_reset_requests.resolved_at (nullable)
}
