package auth

import (
	"github.com/bizdirect/bizdirect-backend/internal/branches"
	"github.com/bizdirect/bizdirect-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens, user, and tenant list produced by a
// successful login.
type LoginResponse struct {
	AccessToken  string                     `json:"access_token"`
	RefreshToken string                     `json:"refresh_token"`
	Businesses   []branches.BusinessSummary `json:"businesses"`
	User         *users.UserDTO             `json:"user"`
}
