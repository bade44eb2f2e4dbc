package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateJWT(secret, "64f1b2a3c4d5e6f708192a3b", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseJWT(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "64f1b2a3c4d5e6f708192a3b", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT([]byte("secret-a"), "64f1b2a3c4d5e6f708192a3b", "user")
	require.NoError(t, err)

	_, err = ParseJWT([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestParseJWTGarbage(t *testing.T) {
	_, err := ParseJWT([]byte("secret"), "not.a.token")
	assert.Error(t, err)
}
