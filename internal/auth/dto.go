package auth

import (
	"github.com/userforge/userforge-backend/internal/users"
)

// RegisterInput is the public sign-up payload.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=120"`
}

// LoginInput carries sign-in credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput carries the expired access token and its refresh token.
type RefreshInput struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ResetRequestInput asks for a password reset link.
type ResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetConfirmInput redeems a reset token for a new password.
type ResetConfirmInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordInput rotates the caller's own password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// AuthResult bundles the authenticated user with a fresh token pair.
type AuthResult struct {
	User         *users.UserDTO `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}
