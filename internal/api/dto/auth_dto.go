package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string        `json:"access_token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Username  string        `json:"username"`
	Roles     []domain.Role `json:"roles"`
}
