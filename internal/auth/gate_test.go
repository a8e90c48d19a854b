package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func identity(roles ...domain.Role) domain.Identity {
	return domain.Identity{Username: "caller", Roles: roles}
}

func TestGate_GuestForbiddenOnAdminAction(t *testing.T) {
	gate := NewGate(DefaultPermissions)

	err := gate.Authorize(identity(domain.RoleGuest), ActionViewAdminDashboard)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Contains(t, err.Error(), "guest")
	assert.NotContains(t, err.Error(), "admin,")
}

func TestGate_AdminAllowedEverywhere(t *testing.T) {
	gate := NewGate(DefaultPermissions)
	for action := range DefaultPermissions {
		assert.NoError(t, gate.Authorize(identity(domain.RoleAdmin), action), "action %s", action)
	}
}

func TestGate_RoleSetIsLogicalOr(t *testing.T) {
	gate := NewGate(DefaultPermissions)

	assert.True(t, gate.Allows(identity(domain.RoleGuest, domain.RoleSupportEngineer), ActionAcknowledge))
	assert.True(t, gate.Allows(identity(domain.RoleSupportEngineer), ActionResolve))
	assert.False(t, gate.Allows(identity(domain.RoleServiceDeskAgent), ActionAcknowledge))
	assert.False(t, gate.Allows(identity(domain.RoleManager, domain.RoleAnalyst), ActionResolve))
	assert.True(t, gate.Allows(identity(domain.RoleAnalyst), ActionViewSLAReport))
	assert.False(t, gate.Allows(identity(domain.RoleExternal), ActionListIncidents))
}

func TestGate_UnknownActionAndEmptyRoles(t *testing.T) {
	gate := NewGate(map[Action][]domain.Role{"open": {}})

	assert.False(t, gate.Allows(identity(domain.RoleAdmin), "missing"))
	assert.True(t, gate.Allows(identity(domain.RoleGuest), "open"))
	assert.False(t, gate.Allows(identity(), "open"))
}

func TestTokenTTL(t *testing.T) {
	tests := []struct {
		name  string
		roles []domain.Role
		want  time.Duration
	}{
		{"admin", []domain.Role{domain.RoleAdmin}, 7 * 24 * time.Hour},
		{"admin and guest", []domain.Role{domain.RoleGuest, domain.RoleAdmin}, 7 * 24 * time.Hour},
		{"guest", []domain.Role{domain.RoleGuest}, 24 * time.Hour},
		{"guest and analyst", []domain.Role{domain.RoleGuest, domain.RoleAnalyst}, 24 * time.Hour},
		{"engineer", []domain.Role{domain.RoleSupportEngineer}, 36 * time.Hour},
		{"external", []domain.Role{domain.RoleExternal}, 36 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenTTL(tt.roles))
		})
	}
}
