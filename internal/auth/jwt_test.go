package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService(duration time.Duration) *JWTService {
	return NewJWTService(&JWTConfig{
		SecretKey:           []byte("test-secret-key"),
		AccessTokenDuration: duration,
		Issuer:              "lynx-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testJWTService(time.Hour)

	token, err := svc.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "lynx-test", claims.Issuer)
}

func TestValidateToken(t *testing.T) {
	t.Run("rejects garbage", func(t *testing.T) {
		svc := testJWTService(time.Hour)
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		svc := testJWTService(time.Hour)
		other := NewJWTService(&JWTConfig{
			SecretKey:           []byte("different-secret"),
			AccessTokenDuration: time.Hour,
			Issuer:              "lynx-test",
		})

		token, err := other.GenerateAccessToken(42, "user@example.com")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		svc := testJWTService(-time.Minute)

		token, err := svc.GenerateAccessToken(42, "user@example.com")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc123", ExtractTokenFromBearer("Bearer abc123"))
	assert.Empty(t, ExtractTokenFromBearer("abc123"))
	assert.Empty(t, ExtractTokenFromBearer("Bearer "))
	assert.Empty(t, ExtractTokenFromBearer(""))
	assert.Empty(t, ExtractTokenFromBearer("Basic abc123"))
}
