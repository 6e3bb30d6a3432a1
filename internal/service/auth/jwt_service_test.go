package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/practice-api/internal/config"
)

const testSecret = "test-jwt-secret-that-is-long-enough!"

func newTestService(t *testing.T, now time.Time) *hmacJWTService {
	t.Helper()
	service, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)

	impl, ok := service.(*hmacJWTService)
	require.True(t, ok)
	impl.timeFunc = func() time.Time { return now }
	return impl
}

// signToken builds a token the way the identity service would.
func signToken(t *testing.T, secret string, userID uuid.UUID, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := jwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.NoError(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err, "short secrets rejected")
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		token := signToken(t, testSecret, userID, now.Add(-time.Minute), now.Add(time.Hour))

		claims, err := service.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userID.String(), claims.Subject)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		_, err := service.ValidateToken(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		token := signToken(t, testSecret, userID, now.Add(-2*time.Hour), now.Add(-time.Hour))

		_, err := service.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("expired within clock skew is accepted", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		token := signToken(t, testSecret, userID, now.Add(-time.Hour), now.Add(-time.Minute))

		_, err := service.ValidateToken(context.Background(), token)
		assert.NoError(t, err, "2 minute leeway covers a 1 minute stale token")
	})

	t.Run("not yet valid", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		claims := jwtCustomClaims{
			UserID: userID,
			RegisteredClaims: jwt.RegisteredClaims{
				NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
				ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		token := signToken(t, "a-different-secret-that-is-long-too!", userID,
			now.Add(-time.Minute), now.Add(time.Hour))

		_, err := service.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		_, err := service.ValidateToken(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("nil user ID rejected", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		token := signToken(t, testSecret, uuid.Nil, now.Add(-time.Minute), now.Add(time.Hour))

		_, err := service.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm rejected", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, now)
		claims := jwtCustomClaims{
			UserID: userID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
