package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", secret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := GetUserIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestExpiredToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, secret)
	assert.Error(t, err)
}

func TestWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", []byte("secret-a"), time.Minute)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, []byte("secret-b"))
	assert.Error(t, err)
}
