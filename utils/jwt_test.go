package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforge/config"
	"taskforge/models"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-signing-key"

	user := &models.User{Email: "a@example.com"}
	user.ID = 42

	access, refresh, err := GenerateJWTToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := ParseJWTToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestParseJWTTokenRejectsTampering(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-signing-key"

	user := &models.User{Email: "a@example.com"}
	user.ID = 7

	access, _, err := GenerateJWTToken(user)
	require.NoError(t, err)

	_, err = ParseJWTToken(access + "x")
	assert.Error(t, err)

	config.AppConfig.EncryptionKey = "a-different-key"
	_, err = ParseJWTToken(access)
	assert.Error(t, err)
}
