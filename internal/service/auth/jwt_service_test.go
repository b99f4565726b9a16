package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough!"

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService("short", 60)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewJWTService(testSecret, 60)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.GenerateToken(context.Background(), userID, RoleSuperadmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleSuperadmin, claims.Role)
	assert.True(t, claims.IsSuperadmin())
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc, err := NewJWTService(testSecret, 60)
	require.NoError(t, err)
	other, err := NewJWTService("another-secret-key-that-is-long-enough", 60)
	require.NoError(t, err)

	token, err := svc.GenerateToken(context.Background(), uuid.New(), "user")
	require.NoError(t, err)

	_, err = other.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenMalformed(t *testing.T) {
	svc, err := NewJWTService(testSecret, 60)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	svc, err := NewJWTService(testSecret, 60)
	require.NoError(t, err)

	impl := svc.(*hmacJWTService)
	issuedAt := time.Now().Add(-24 * time.Hour)
	impl.timeFunc = func() time.Time { return issuedAt }

	token, err := svc.GenerateToken(context.Background(), uuid.New(), "user")
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNonSuperadminRole(t *testing.T) {
	svc, err := NewJWTService(testSecret, 60)
	require.NoError(t, err)

	token, err := svc.GenerateToken(context.Background(), uuid.New(), "editor")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, claims.IsSuperadmin())
}
