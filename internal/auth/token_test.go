package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret")
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, exp, err := tm.GenerateToken(identity(domain.RoleGuest))
	require.NoError(t, err)
	assert.Equal(t, issued.Add(24*time.Hour), exp)

	id, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "caller", id.Username)
	assert.Equal(t, []domain.Role{domain.RoleGuest}, id.Roles)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, _, err := tm.GenerateToken(identity(domain.RoleSupportEngineer))
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(37 * time.Hour) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("a").GenerateToken(identity(domain.RoleAdmin))
	require.NoError(t, err)

	_, err = NewTokenManager("b").ParseToken(token)
	assert.Error(t, err)
}

func newProtectedApp(tm *TokenManager, action Action) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/x", NewAuthMiddleware(tm).Handle, RequireAction(NewGate(DefaultPermissions), action), func(c *fiber.Ctx) error {
		id, _ := IdentityFromContext(c)
		return c.SendString(id.Username)
	})
	return app
}

func TestMiddleware_StatusCodes(t *testing.T) {
	tm := NewTokenManager("test-secret")
	app := newProtectedApp(tm, ActionAcknowledge)

	engineerToken, _, err := tm.GenerateToken(identity(domain.RoleSupportEngineer))
	require.NoError(t, err)
	guestToken, _, err := tm.GenerateToken(identity(domain.RoleGuest))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"guest", "Bearer " + guestToken, http.StatusForbidden},
		{"engineer", "Bearer " + engineerToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
