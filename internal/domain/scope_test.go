package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		required string
		want     bool
	}{
		{"通配符允许任意权限", []string{ScopeWildcard}, ScopeChoresWrite, true},
		{"通配符允许读权限", []string{ScopeWildcard}, ScopeShoppingRead, true},
		{"完全匹配允许", []string{ScopeShoppingRead}, ScopeShoppingRead, true},
		{"写权限蕴含读权限", []string{ScopeShoppingWrite}, ScopeShoppingRead, true},
		{"读权限不蕴含写权限", []string{ScopeShoppingRead}, ScopeShoppingWrite, false},
		{"跨资源不蕴含", []string{ScopeShoppingWrite}, ScopeEventsRead, false},
		{"空集合拒绝", nil, ScopeShoppingRead, false},
		{"无冒号的要求拒绝", []string{ScopeShoppingWrite}, "shopping", false},
		{"多个权限取并集", []string{ScopeEventsRead, ScopeChoresWrite}, ScopeChoresRead, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasScope(tt.scopes, tt.required))
		})
	}
}

func TestValidScope(t *testing.T) {
	assert.True(t, ValidScope(ScopeWildcard))
	assert.True(t, ValidScope(ScopeExpensesWrite))
	assert.False(t, ValidScope("pantry:read"))
	assert.False(t, ValidScope(""))
}

func TestGrantableScope(t *testing.T) {
	// 通配符不允许从外部签发端点选择
	assert.False(t, GrantableScope(ScopeWildcard))
	assert.True(t, GrantableScope(ScopeChoresRead))
}

func TestIdentityHasScope(t *testing.T) {
	id := &Identity{
		KeyID:  1,
		UserID: "user-1",
		Scopes: []string{ScopeShoppingWrite},
	}
	assert.True(t, id.HasScope(ScopeShoppingRead))
	assert.False(t, id.HasScope(ScopeEventsWrite))
}

func TestAPIKeyScopeList(t *testing.T) {
	key := &APIKey{}
	assert.Equal(t, []string{ScopeWildcard}, key.ScopeList(), "空值回退到通配符")

	key.SetScopeList([]string{ScopeShoppingRead, ScopeEventsRead})
	assert.Equal(t, []string{ScopeShoppingRead, ScopeEventsRead}, key.ScopeList())

	key.Scopes = "not-json"
	assert.Equal(t, []string{ScopeWildcard}, key.ScopeList(), "解析失败回退到通配符")
}
