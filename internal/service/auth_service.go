package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  domain.Identity
}

// AuthService verifies credentials and issues role-scoped tokens.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
	}
}

// Login authenticates a user. Every credential failure yields the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	if !user.Active || !auth.PasswordMatches(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	id := user.Identity()
	token, exp, err := s.tokenMgr.GenerateToken(id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Identity: id}, nil
}

// SeedUsers stores bootstrap users, replacing any existing record with the same username.
func (s *AuthService) SeedUsers(ctx context.Context, seeds []config.SeedUser) error {
	for _, seed := range seeds {
		roles := make([]domain.Role, 0, len(seed.Roles))
		for _, raw := range seed.Roles {
			role := domain.Role(raw)
			if !role.IsKnown() {
				return fmt.Errorf("seed user %s: unknown role %q", seed.Username, raw)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return fmt.Errorf("seed user %s: at least one role required", seed.Username)
		}

		hash, err := auth.HashPassword(seed.Password, s.bcryptCost)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
		user := &domain.User{
			Username:     seed.Username,
			PasswordHash: hash,
			Roles:        roles,
			Active:       true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
