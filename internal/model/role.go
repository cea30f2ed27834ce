package model

// Role names as stored in profiles.role and carried in the JWT "role"
// claim.  DIRECTOR sits above ADMIN, which sits above USER.  Directors
// never accumulate tokens; balances are meaningful only for Admin and
// User profiles.
const (
	RoleDirector = "DIRECTOR"
	RoleAdmin    = "ADMIN"
	RoleUser     = "USER"
)

// ValidRole reports whether s is one of the three known role names.
func ValidRole(s string) bool {
	switch s {
	case RoleDirector, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// CanReviewTasks reports whether the role may create, edit, review,
// reassign or delete tasks.  Users only ever submit their own work.
func CanReviewTasks(role string) bool {
	return role == RoleDirector || role == RoleAdmin
}

// CanProvisionRole reports whether an actor with actorRole may create an
// account with newRole.  Directors provision Admins and Users; Admins
// provision Users only.  Nobody provisions a Director through this path.
func CanProvisionRole(actorRole, newRole string) bool {
	switch actorRole {
	case RoleDirector:
		return newRole == RoleAdmin || newRole == RoleUser
	case RoleAdmin:
		return newRole == RoleUser
	}
	return false
}

// CanDeleteRole reports whether an actor with actorRole may delete an
// account with targetRole.  Directors may delete Admins and Users but
// never another Director; Admins may delete Users only.
func CanDeleteRole(actorRole, targetRole string) bool {
	switch actorRole {
	case RoleDirector:
		return targetRole == RoleAdmin || targetRole == RoleUser
	case RoleAdmin:
		return targetRole == RoleUser
	}
	return false
}

// CanGiftTokensTo reports whether an actor with actorRole may award
// tokens directly to a profile with targetRole.
func CanGiftTokensTo(actorRole, targetRole string) bool {
	switch actorRole {
	case RoleDirector:
		return targetRole == RoleAdmin || targetRole == RoleUser
	case RoleAdmin:
		return targetRole == RoleUser
	}
	return false
}
