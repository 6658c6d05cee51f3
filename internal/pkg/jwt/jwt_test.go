package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	now := time.Now()
	token, expiresAt, err := GenerateAccessToken(AccessTokenParams{
		UserID:   "user-1",
		Role:     "client",
		Secret:   "secret",
		Issuer:   "btg-funds",
		TTL:      15 * time.Minute,
		IssuedAt: now,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(15*time.Minute), expiresAt, time.Second)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "client", claims.Role)
	assert.Equal(t, "btg-funds", claims.Issuer)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateAccessToken(AccessTokenParams{UserID: "u", Role: "admin", Secret: "a", TTL: time.Minute})
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "b")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	token, _, err := GenerateAccessToken(AccessTokenParams{
		UserID:   "u",
		Role:     "client",
		Secret:   "secret",
		TTL:      time.Minute,
		IssuedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	_, err := ValidateAccessToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
