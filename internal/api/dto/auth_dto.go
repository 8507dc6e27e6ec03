package dto

import (
	"time"

	"github.com/fleetops/ops-dashboard/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=5,max=128"`
	Role     string `json:"role" validate:"required,oneof=admin executive operations"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=5,max=128"`
}

// PasswordResetRequest payload for reset initiation.
type PasswordResetRequest struct {
	Username string `json:"username" validate:"required"`
}

// PasswordResetConfirmRequest payload for reset completion.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=5,max=128"`
}

// LoginResponse carries the signed token and the redacted identity.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      domain.Identity `json:"user"`
}
