package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// Action names a protected operation.
type Action string

const (
	ActionSubmitInternal     Action = "submit_internal"
	ActionListIncidents      Action = "list_incidents"
	ActionViewIncident       Action = "view_incident"
	ActionAcknowledge        Action = "acknowledge_incident"
	ActionResolve            Action = "resolve_incident"
	ActionViewSLAReport      Action = "view_sla_report"
	ActionViewAdminDashboard Action = "view_admin_dashboard"
)

// DefaultPermissions is the single source of truth for who may do what.
var DefaultPermissions = map[Action][]domain.Role{
	ActionSubmitInternal: {domain.RoleAdmin, domain.RoleSupportEngineer, domain.RoleServiceDeskAgent},
	ActionListIncidents: {
		domain.RoleAdmin, domain.RoleSupportEngineer, domain.RoleServiceDeskAgent,
		domain.RoleManager, domain.RoleAnalyst,
	},
	ActionViewIncident: {
		domain.RoleAdmin, domain.RoleSupportEngineer, domain.RoleServiceDeskAgent,
		domain.RoleManager, domain.RoleAnalyst,
	},
	ActionAcknowledge:        {domain.RoleAdmin, domain.RoleSupportEngineer},
	ActionResolve:            {domain.RoleAdmin, domain.RoleSupportEngineer},
	ActionViewSLAReport:      {domain.RoleAdmin, domain.RoleSupportEngineer, domain.RoleManager, domain.RoleAnalyst},
	ActionViewAdminDashboard: {domain.RoleAdmin},
}

// Gate authorizes actions for already-authenticated identities.
type Gate struct {
	permissions map[Action]map[domain.Role]struct{}
}

// NewGate builds a gate from an action table. Actions missing from the table are denied.
func NewGate(table map[Action][]domain.Role) *Gate {
	perms := make(map[Action]map[domain.Role]struct{}, len(table))
	for action, roles := range table {
		set := make(map[domain.Role]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		perms[action] = set
	}
	return &Gate{permissions: perms}
}

// Authorize succeeds iff the identity holds at least one role permitted for action.
// An action declared with an empty role set only requires authentication.
func (g *Gate) Authorize(id domain.Identity, action Action) error {
	required, ok := g.permissions[action]
	if !ok {
		return forbidden(id, action)
	}
	if len(id.Roles) == 0 {
		return forbidden(id, action)
	}
	if len(required) == 0 {
		return nil
	}
	for _, role := range id.Roles {
		if _, hit := required[role]; hit {
			return nil
		}
	}
	return forbidden(id, action)
}

// Allows is the boolean form of Authorize.
func (g *Gate) Allows(id domain.Identity, action Action) bool {
	return g.Authorize(id, action) == nil
}

func forbidden(id domain.Identity, action Action) error {
	roles := make([]string, 0, len(id.Roles))
	for _, r := range id.Roles {
		roles = append(roles, string(r))
	}
	held := "none"
	if len(roles) > 0 {
		held = strings.Join(roles, ",")
	}
	return apperrors.NewForbidden(fmt.Sprintf("insufficient privileges: roles [%s] may not %s", held, action))
}

// Token validity windows by role.
const (
	AdminTokenTTL   = 7 * 24 * time.Hour
	GuestTokenTTL   = 24 * time.Hour
	DefaultTokenTTL = 36 * time.Hour
)

// TokenTTL returns how long a token issued to this role set stays valid.
func TokenTTL(roles []domain.Role) time.Duration {
	id := domain.Identity{Roles: roles}
	switch {
	case id.HasRole(domain.RoleAdmin):
		return AdminTokenTTL
	case id.HasRole(domain.RoleGuest):
		return GuestTokenTTL
	default:
		return DefaultTokenTTL
	}
}
