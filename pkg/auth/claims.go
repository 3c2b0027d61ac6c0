package auth

import (
	"github.com/bizdirect/bizdirect-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID           uuid.UUID
	Role             enums.ActorRole
	ActiveBusinessID *uuid.UUID
	JTI              string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID           uuid.UUID       `json:"user_id"`
	Role             enums.ActorRole `json:"role"`
	ActiveBusinessID *uuid.UUID      `json:"active_business_id,omitempty"`
	jwt.RegisteredClaims
}
