package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage/memory"
)

func newTestAPIKeyService(t *testing.T) (*APIKeyService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewAPIKeyService(store, zap.NewNop(), 20, 0)
	return svc, store
}

func TestCreateAPIKey(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "automation",
		Scopes: []string{domain.ScopeShoppingRead, domain.ScopeShoppingWrite},
	})
	require.NoError(t, err)

	// Plaintext carries the marker and 43 base64url chars of entropy
	assert.True(t, strings.HasPrefix(result.Plaintext, "nxk_"))
	assert.Equal(t, 4+43, len(result.Plaintext))

	// Stored record keeps only hash and display prefix
	assert.Equal(t, HashAPIKey(result.Plaintext), result.Key.KeyHash)
	assert.Equal(t, result.Plaintext[:12], result.Key.KeyPrefix)
	assert.NotContains(t, result.Key.KeyHash, "nxk_")
	assert.True(t, result.Key.IsActive)
	assert.Nil(t, result.Key.ExpiresAt)
	assert.ElementsMatch(t,
		[]string{domain.ScopeShoppingRead, domain.ScopeShoppingWrite},
		result.Key.ScopeList())
}

func TestCreateAPIKeyValidation(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	t.Run("名称必填", func(t *testing.T) {
		_, err := svc.CreateAPIKey(CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "  ",
			Scopes: []string{domain.ScopeShoppingRead},
		})
		assert.ErrorIs(t, err, ErrKeyNameRequired)
	})

	t.Run("权限必选", func(t *testing.T) {
		_, err := svc.CreateAPIKey(CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "no scopes",
		})
		assert.ErrorIs(t, err, ErrScopeNotGrantable)
	})

	t.Run("拒绝未知权限", func(t *testing.T) {
		_, err := svc.CreateAPIKey(CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "bad scope",
			Scopes: []string{"documents:read"},
		})
		assert.ErrorIs(t, err, ErrScopeNotGrantable)
	})

	t.Run("拒绝通配符", func(t *testing.T) {
		// Wildcard is valid internally but never grantable via the API
		_, err := svc.CreateAPIKey(CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "wildcard",
			Scopes: []string{domain.ScopeWildcard},
		})
		assert.ErrorIs(t, err, ErrScopeNotGrantable)
	})
}

func TestCreateAPIKeyNameTruncation(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	// 超长的多字节名称按字符截断，截断结果必须仍是合法 UTF-8
	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   strings.Repeat("厨", 120),
		Scopes: []string{domain.ScopeShoppingRead},
	})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(result.Key.Name))
	assert.Equal(t, 100, utf8.RuneCountInString(result.Key.Name))
	assert.Equal(t, strings.Repeat("厨", 100), result.Key.Name)
}

func TestCreateAPIKeyLimit(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store, zap.NewNop(), 2, 0)

	for i := 0; i < 2; i++ {
		_, err := svc.CreateAPIKey(CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "key",
			Scopes: []string{domain.ScopeChoresRead},
		})
		require.NoError(t, err)
	}

	_, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "one too many",
		Scopes: []string{domain.ScopeChoresRead},
	})
	assert.ErrorIs(t, err, ErrKeyLimitReached)

	// Revoking a key frees up a slot since only active keys count
	keys, err := svc.ListAPIKeys("user-1")
	require.NoError(t, err)
	require.NoError(t, svc.RevokeAPIKey("user-1", keys[0].ID))

	_, err = svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "replacement",
		Scopes: []string{domain.ScopeChoresRead},
	})
	assert.NoError(t, err)
}

func TestValidateAPIKey(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	orgID := "org-1"
	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		OrgID:  &orgID,
		Name:   "reader",
		Scopes: []string{domain.ScopeEventsRead},
	})
	require.NoError(t, err)

	identity, err := svc.ValidateAPIKey(result.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, result.Key.ID, identity.KeyID)
	assert.Equal(t, "user-1", identity.UserID)
	require.NotNil(t, identity.OrgID)
	assert.Equal(t, "org-1", *identity.OrgID)
	assert.True(t, identity.HasScope(domain.ScopeEventsRead))
	assert.False(t, identity.HasScope(domain.ScopeEventsWrite))
}

func TestValidateAPIKeyFormat(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	// Strings without the marker fail fast, no lookup involved
	for _, raw := range []string{"", "bearer-token", "sk_live_abc", "NXK_uppercase"} {
		_, err := svc.ValidateAPIKey(raw)
		assert.ErrorIs(t, err, ErrKeyInvalidFormat, raw)
	}

	// Well-formed but unknown key
	_, err := svc.ValidateAPIKey("nxk_" + strings.Repeat("A", 43))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestValidateAPIKeyDisabled(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "to revoke",
		Scopes: []string{domain.ScopeChoresWrite},
	})
	require.NoError(t, err)
	require.NoError(t, svc.RevokeAPIKey("user-1", result.Key.ID))

	// Original plaintext no longer authenticates
	_, err = svc.ValidateAPIKey(result.Plaintext)
	assert.ErrorIs(t, err, ErrKeyDisabled)
}

func TestValidateAPIKeyExpiry(t *testing.T) {
	svc, store := newTestAPIKeyService(t)

	makeKey := func(expiresAt time.Time) string {
		plaintext, err := generateAPIKey()
		require.NoError(t, err)
		key := &domain.APIKey{
			KeyHash:   HashAPIKey(plaintext),
			KeyPrefix: plaintext[:12],
			UserID:    "user-1",
			Name:      "expiring",
			IsActive:  true,
			ExpiresAt: &expiresAt,
		}
		key.SetScopeList([]string{domain.ScopeExpensesRead})
		require.NoError(t, store.SaveAPIKey(key))
		return plaintext
	}

	t.Run("刚过期一秒即失败", func(t *testing.T) {
		plaintext := makeKey(time.Now().UTC().Add(-time.Second))
		_, err := svc.ValidateAPIKey(plaintext)
		assert.ErrorIs(t, err, ErrKeyExpired)
	})

	t.Run("一小时后过期仍有效", func(t *testing.T) {
		plaintext := makeKey(time.Now().UTC().Add(time.Hour))
		_, err := svc.ValidateAPIKey(plaintext)
		assert.NoError(t, err)
	})
}

func TestValidateAPIKeyTouchesLastUsed(t *testing.T) {
	svc, store := newTestAPIKeyService(t)

	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "touched",
		Scopes: []string{domain.ScopeShoppingRead},
	})
	require.NoError(t, err)
	assert.Nil(t, result.Key.LastUsedAt)

	_, err = svc.ValidateAPIKey(result.Plaintext)
	require.NoError(t, err)

	// No pool configured, so the touch ran synchronously
	stored, err := store.GetAPIKey(result.Key.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestRevokeAPIKey(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner",
		Name:   "shared knowledge",
		Scopes: []string{domain.ScopeShoppingWrite},
	})
	require.NoError(t, err)

	t.Run("非属主撤销失败", func(t *testing.T) {
		err := svc.RevokeAPIKey("intruder", result.Key.ID)
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// Key stays active after the failed attempt
		_, err = svc.ValidateAPIKey(result.Plaintext)
		assert.NoError(t, err)
	})

	t.Run("属主撤销成功且幂等", func(t *testing.T) {
		require.NoError(t, svc.RevokeAPIKey("owner", result.Key.ID))
		assert.NoError(t, svc.RevokeAPIKey("owner", result.Key.ID))

		_, err := svc.ValidateAPIKey(result.Plaintext)
		assert.ErrorIs(t, err, ErrKeyDisabled)
	})

	t.Run("不存在的密钥", func(t *testing.T) {
		err := svc.RevokeAPIKey("owner", 9999)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestDeleteAPIKey(t *testing.T) {
	svc, _ := newTestAPIKeyService(t)

	result, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner",
		Name:   "short lived",
		Scopes: []string{domain.ScopeEventsWrite},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteAPIKey("intruder", result.Key.ID), ErrKeyNotFound)
	require.NoError(t, svc.DeleteAPIKey("owner", result.Key.ID))

	_, err = svc.ValidateAPIKey(result.Plaintext)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	keys, err := svc.ListAPIKeys("owner")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGenerateAPIKeyUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		plaintext, err := generateAPIKey()
		require.NoError(t, err)
		if _, dup := seen[plaintext]; dup {
			t.Fatalf("duplicate plaintext after %d keys", i)
		}
		seen[plaintext] = struct{}{}
	}
}

func TestHashAPIKey(t *testing.T) {
	// Same input always maps to the same 64-char hex digest
	h1 := HashAPIKey("nxk_example")
	h2 := HashAPIKey("nxk_example")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashAPIKey("nxk_other"))
}
