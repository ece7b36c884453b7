package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("user-1", "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "quicksnack-auth", claims.Issuer)
}

func TestJWTManager_Validate_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.Generate("user-1", "alice@example.com", "user")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTManager_Validate_WrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("different-secret", time.Hour)

	token, err := m.Generate("user-1", "alice@example.com", "user")
	require.NoError(t, err)

	claims, err := other.Validate(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTManager_Validate_Garbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	claims, err := m.Validate("not-a-token")
	assert.Error(t, err)
	assert.Nil(t, claims)
}
