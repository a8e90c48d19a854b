package domain

import "time"

// Role is a permission label attached to an authenticated caller.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleSupportEngineer  Role = "support_engineer"
	RoleServiceDeskAgent Role = "service_desk_agent"
	RoleManager          Role = "manager"
	RoleAnalyst          Role = "analyst"
	RoleGuest            Role = "guest"
	RoleExternal         Role = "external"
)

// KnownRoles lists every role the gate understands.
var KnownRoles = []Role{
	RoleAdmin,
	RoleSupportEngineer,
	RoleServiceDeskAgent,
	RoleManager,
	RoleAnalyst,
	RoleGuest,
	RoleExternal,
}

// IsKnown reports whether r is one of KnownRoles.
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if k == r {
			return true
		}
	}
	return false
}

// Identity is an already-authenticated caller.
type Identity struct {
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

// HasRole reports whether the identity carries r.
func (id Identity) HasRole(r Role) bool {
	for _, have := range id.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// User is a stored credential record backing an Identity.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []Role
	Active       bool
	CreatedAt    time.Time
}

// Identity projects the user to the caller view used by the gate.
func (u *User) Identity() Identity {
	return Identity{Username: u.Username, Roles: append([]Role(nil), u.Roles...)}
}
