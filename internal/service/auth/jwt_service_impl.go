package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/config"
	"github.com/prepforge/practice-api/internal/platform/logger"
)

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey []byte
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

// jwtCustomClaims defines the structure of JWT claims we accept.
type jwtCustomClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT validation service using HMAC-SHA signing.
// The signing key must match the one the identity service signs with.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacJWTService{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
		// Allow 2 minutes of clock skew to handle minor time drifts between
		// the identity service and this API.
		clockSkew: 2 * time.Minute,
	}, nil
}

// ValidateToken validates a JWT access token and returns the claims if valid.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := s.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("token validation failed", "error", err)
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	result := &Claims{
		UserID:  claims.UserID,
		Subject: claims.Subject,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}
