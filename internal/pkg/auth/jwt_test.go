package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
)

func testManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:            "test-secret-that-is-at-least-32-characters",
		AccessTokenExpiry: expiry,
	}, "marketplace-test")
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := testManager(time.Hour)

	token, err := m.GenerateAccessToken(42, "buyer@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, "user:42", claims.Subject)
	assert.Equal(t, "marketplace-test", claims.Issuer)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := testManager(time.Hour)

	expired, err := testManager(-time.Minute).GenerateAccessToken(1, "a@example.com")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTManager(config.JWTConfig{Secret: "another-secret-that-is-32-characters!!", AccessTokenExpiry: time.Hour}, "x")
	forged, err := other.GenerateAccessToken(1, "a@example.com")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:    1,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := refresh.SignedString(m.secret)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}
