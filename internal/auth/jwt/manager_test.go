package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-characters-min"

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewManager(testSecret, "maildash", time.Hour)

	token, err := manager.GenerateToken("user-1", "alice", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Alias)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "maildash", claims.Issuer)
}

func TestValidateToken(t *testing.T) {
	manager := NewManager(testSecret, "maildash", time.Hour)

	t.Run("过期令牌", func(t *testing.T) {
		expired := NewManager(testSecret, "maildash", -time.Minute)
		token, err := expired.GenerateToken("user-1", "alice", "user")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("密钥不匹配", func(t *testing.T) {
		other := NewManager("another-secret-key-32-characters!", "maildash", time.Hour)
		token, err := other.GenerateToken("user-1", "alice", "user")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("畸形令牌", func(t *testing.T) {
		_, err := manager.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAccessExpiry(t *testing.T) {
	manager := NewManager(testSecret, "maildash", 24*time.Hour)
	assert.Equal(t, int64(86400), manager.AccessExpiry())
}
