// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// lifecycle and account services to distinguish between failure
// scenarios: ErrConflict signals that a guarded update matched no row
// because the entity was not in the expected state (a stale or repeated
// transition), while the Exists pair reports provisioning collisions.
// Missing rows are reported as sql.ErrNoRows throughout.
package repository

import "errors"

// ErrConflict is returned when a guarded write matched no row, meaning
// the entity was not in the state the transition requires. Handlers
// translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an identity insert collides with an
// existing email.
var ErrEmailExists = errors.New("email already exists")

// ErrProfileExists is returned when account provisioning finds both an
// identity and a profile already present for the email.
var ErrProfileExists = errors.New("profile already exists")
