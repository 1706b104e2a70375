package models

// Role is supplied by the session collaborator; it is never derived from credentials here.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEducator Role = "educator"
	RoleStudent  Role = "student"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleAdmin, RoleEducator, RoleStudent}

// Capabilities is the set of actions a role may perform.
type Capabilities struct {
	CanCreateCLO      bool `json:"canCreateClo"`
	CanEditCLO        bool `json:"canEditClo"`
	CanManageMappings bool `json:"canManageMappings"`
	CanViewAnalytics  bool `json:"canViewAnalytics"`
	// OwnCareerOnly limits career-scoped analytics to the caller's own career.
	OwnCareerOnly bool `json:"ownCareerOnly"`
}

// Capability names a single permission for route guards.
type Capability string

const (
	CapabilityCreateCLO      Capability = "create_clo"
	CapabilityEditCLO        Capability = "edit_clo"
	CapabilityManageMappings Capability = "manage_mappings"
	CapabilityViewAnalytics  Capability = "view_analytics"
)

// Allows reports whether the set grants the named capability.
func (c Capabilities) Allows(capability Capability) bool {
	switch capability {
	case CapabilityCreateCLO:
		return c.CanCreateCLO
	case CapabilityEditCLO:
		return c.CanEditCLO
	case CapabilityManageMappings:
		return c.CanManageMappings
	case CapabilityViewAnalytics:
		return c.CanViewAnalytics
	default:
		return false
	}
}
