package core

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string
type OverrideID string
type SettingsID string
type BreakfastID string

// =============================================================================
// ROLES
// =============================================================================

// Role is the coarse tier in the four-level hierarchy.
// Fine-grained checks go through the Authorizer, never through direct
// role-name comparison in feature code.
type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// rank orders roles for hierarchy comparison. Unknown roles rank below user.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperadmin:
		return 4
	default:
		return 0
	}
}

// AtLeast returns true if r is the given role or higher in the hierarchy.
func (r Role) AtLeast(other Role) bool { return r.rank() >= other.rank() }

// =============================================================================
// USER - Owns the three balances
// =============================================================================

type User struct {
	ID       UserID
	Name     string
	Role     Role
	IsActive bool

	// Extra permissions granted beyond the role's default set.
	Permissions []Permission

	Balances map[string]*Balance
}

// Balance is one of the three per-user running balances.
// INVARIANT: Amount changes only via ledger operations, never directly.
type Balance struct {
	Amount       Money
	IsFrozen     bool
	FrozenReason string
}

// NewUser creates an active user with zeroed breakfast/lunch/dinner balances.
func NewUser(id UserID, name string, role Role) *User {
	return &User{
		ID:       id,
		Name:     name,
		Role:     role,
		IsActive: true,
		Balances: map[string]*Balance{
			"breakfast": {Amount: ZeroMoney()},
			"lunch":     {Amount: ZeroMoney()},
			"dinner":    {Amount: ZeroMoney()},
		},
	}
}
