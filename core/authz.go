/*
authz.go - Single authorization resolver

PURPOSE:
  The system has two overlapping authorization inputs: the four-tier role
  hierarchy and a per-user fine-grained permission list. Both feed ONE
  resolver so feature code never branches on role names directly.

RESOLUTION:
  Check(user, permission) =
    permission ∈ defaultPermissions(user.Role)  OR
    permission ∈ user.Permissions (overlay)

  Inactive users hold no permissions at all.
*/
package core

// =============================================================================
// PERMISSIONS
// =============================================================================

type Permission string

const (
	PermToggleOwnMeal      Permission = "meal.toggle.own"
	PermToggleAnyMeal      Permission = "meal.toggle.any"
	PermBypassCutoff       Permission = "meal.cutoff.bypass"
	PermManageOverrides    Permission = "rules.manage"
	PermManageHolidays     Permission = "calendar.manage"
	PermManageBreakfast    Permission = "breakfast.manage"
	PermPostDeposits       Permission = "ledger.deposit"
	PermReverseTransaction Permission = "ledger.reverse"
	PermOverrideFrozen     Permission = "ledger.frozen.override"
	PermManageMonths       Permission = "month.manage"
	PermForceEdit          Permission = "month.force_edit"
	PermForceUnfinalize    Permission = "month.force_unfinalize"
	PermRunCharges         Permission = "charges.run"
	PermManageUsers        Permission = "users.manage"
)

// defaultPermissions maps each role tier to its derived permission set.
// Each tier includes everything below it.
var defaultPermissions = map[Role][]Permission{
	RoleUser: {
		PermToggleOwnMeal,
	},
	RoleManager: {
		PermToggleOwnMeal,
		PermToggleAnyMeal,
		PermBypassCutoff,
		PermManageBreakfast,
		PermPostDeposits,
		PermRunCharges,
	},
	RoleAdmin: {
		PermToggleOwnMeal,
		PermToggleAnyMeal,
		PermBypassCutoff,
		PermManageBreakfast,
		PermPostDeposits,
		PermRunCharges,
		PermManageOverrides,
		PermManageHolidays,
		PermManageMonths,
		PermReverseTransaction,
		PermManageUsers,
	},
	RoleSuperadmin: {
		PermToggleOwnMeal,
		PermToggleAnyMeal,
		PermBypassCutoff,
		PermManageBreakfast,
		PermPostDeposits,
		PermRunCharges,
		PermManageOverrides,
		PermManageHolidays,
		PermManageMonths,
		PermReverseTransaction,
		PermManageUsers,
		PermOverrideFrozen,
		PermForceEdit,
		PermForceUnfinalize,
	},
}

// =============================================================================
// AUTHORIZER
// =============================================================================

// Authorizer resolves permission checks from role defaults plus the
// per-user overlay.
type Authorizer struct{}

func NewAuthorizer() *Authorizer { return &Authorizer{} }

// Check returns nil if the user holds the permission, or a PermissionError.
func (a *Authorizer) Check(user *User, perm Permission) error {
	if a.Has(user, perm) {
		return nil
	}
	id := UserID("")
	if user != nil {
		id = user.ID
	}
	return &PermissionError{UserID: id, Permission: perm}
}

// Has reports whether the user holds the permission.
func (a *Authorizer) Has(user *User, perm Permission) bool {
	if user == nil || !user.IsActive {
		return false
	}
	for _, p := range defaultPermissions[user.Role] {
		if p == perm {
			return true
		}
	}
	for _, p := range user.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
