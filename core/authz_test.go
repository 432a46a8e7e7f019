package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// =============================================================================
// ROLE HIERARCHY TESTS
// =============================================================================

func TestAuthorizer_RoleTiers_AreCumulative(t *testing.T) {
	// GIVEN: One user of each role
	// THEN: Each tier holds its own permissions plus everything below it

	authz := core.NewAuthorizer()

	user := core.NewUser("u", "User", core.RoleUser)
	manager := core.NewUser("m", "Manager", core.RoleManager)
	admin := core.NewUser("a", "Admin", core.RoleAdmin)
	super := core.NewUser("s", "Super", core.RoleSuperadmin)

	assert.True(t, authz.Has(user, core.PermToggleOwnMeal))
	assert.False(t, authz.Has(user, core.PermToggleAnyMeal))

	assert.True(t, authz.Has(manager, core.PermToggleOwnMeal), "manager inherits user permissions")
	assert.True(t, authz.Has(manager, core.PermToggleAnyMeal))
	assert.True(t, authz.Has(manager, core.PermPostDeposits))
	assert.False(t, authz.Has(manager, core.PermManageMonths))

	assert.True(t, authz.Has(admin, core.PermToggleAnyMeal), "admin inherits manager permissions")
	assert.True(t, authz.Has(admin, core.PermManageMonths))
	assert.False(t, authz.Has(admin, core.PermForceUnfinalize))

	assert.True(t, authz.Has(super, core.PermForceUnfinalize))
	assert.True(t, authz.Has(super, core.PermOverrideFrozen))
	assert.True(t, authz.Has(super, core.PermForceEdit))
}

func TestAuthorizer_PermissionOverlay_ExtendsRole(t *testing.T) {
	// GIVEN: A plain user granted an individual extra permission
	// WHEN: Checking that permission
	// THEN: The overlay grants it without changing the role

	authz := core.NewAuthorizer()
	u := core.NewUser("u", "User", core.RoleUser)
	u.Permissions = append(u.Permissions, core.PermManageBreakfast)

	assert.True(t, authz.Has(u, core.PermManageBreakfast))
	assert.False(t, authz.Has(u, core.PermManageMonths), "overlay grants only what it names")
}

func TestAuthorizer_Check_ReturnsPermissionError(t *testing.T) {
	authz := core.NewAuthorizer()
	u := core.NewUser("u", "User", core.RoleUser)

	err := authz.Check(u, core.PermRunCharges)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPermission))
	var perr *core.PermissionError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, core.PermRunCharges, perr.Permission)
}

func TestAuthorizer_InactiveOrNilUser_Denied(t *testing.T) {
	// GIVEN: A deactivated superadmin, and no user at all
	// THEN: Every check is denied

	authz := core.NewAuthorizer()
	u := core.NewUser("s", "Super", core.RoleSuperadmin)
	u.IsActive = false

	assert.False(t, authz.Has(u, core.PermToggleOwnMeal))
	assert.False(t, authz.Has(nil, core.PermToggleOwnMeal))
	assert.Error(t, authz.Check(nil, core.PermToggleOwnMeal))
}
