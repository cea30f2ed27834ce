package model

import "time"

// Identity represents an authenticatable account in the `users` table.
// The identity row carries only credentials; everything the dashboard
// shows about a person lives in the Profile.  Keeping the two separate
// means a half-provisioned account (identity without profile) is a
// representable state that account administration can detect and repair.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique email address, lower-cased on insert.
//	PasswordHash – bcrypt hashed password.
//	CreatedAt    – timestamp of creation.
type Identity struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}

// Profile is the organizational record attached to an identity, one row
// in the `profiles` table per account.
//
// Fields:
//
//	UserID       – identity this profile belongs to (primary key).
//	EmployeeCode – human-readable code in PREFIX-YEAR-NNN form, unique,
//	               assigned sequentially from the highest existing suffix.
//	FullName     – display name.
//	Role         – DIRECTOR, ADMIN or USER.
//	TotalTokens  – non-negative token balance.  Directors stay at zero.
//	TempPassword – true while the account is on a provisional password
//	               that must be changed on next sign-in.
//	Phone        – optional contact number.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type Profile struct {
	UserID       uint64    // profiles.user_id
	EmployeeCode string    // profiles.employee_code
	FullName     string    // profiles.full_name
	Role         string    // profiles.role
	TotalTokens  uint32    // profiles.total_tokens
	TempPassword bool      // profiles.temp_password
	Phone        *string   // profiles.phone (nullable)
	CreatedAt    time.Time // profiles.created_at
	UpdatedAt    time.Time // profiles.updated_at
}
