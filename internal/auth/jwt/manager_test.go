package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(strings.Repeat("s", 32), "test", 15*time.Minute, 7*24*time.Hour)
}

func TestManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager()

	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "test", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "jti must be set for blacklisting")
}

func TestManager_ValidateToken_Invalid(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with another secret
	other := NewManager(strings.Repeat("x", 32), "test", 15*time.Minute, time.Hour)
	pair, err := other.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_ExpiredToken(t *testing.T) {
	m := NewManager(strings.Repeat("s", 32), "test", -time.Minute, time.Hour)

	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_RefreshTokenPair(t *testing.T) {
	m := newTestManager()

	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	refreshed, err := m.RefreshTokenPair(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := m.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}
