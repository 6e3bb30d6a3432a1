// Package auth validates the JWT bearer tokens issued by the identity
// service. Token issuance (registration, login, refresh) happens elsewhere;
// this API only needs to verify signatures and extract the owner identity.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines token validation for incoming requests.
type JWTService interface {
	// ValidateToken validates the provided access token string and extracts
	// the claims. Returns ErrExpiredToken, ErrTokenNotYetValid, or
	// ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the validated identity extracted from a token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
