package domain

import "strings"

// ScopeWildcard 通配符权限，表示拥有全部权限
const ScopeWildcard = "*"

// 权限范围定义，格式为 "resource:action"
const (
	ScopeShoppingRead  = "shopping:read"
	ScopeShoppingWrite = "shopping:write"
	ScopeEventsRead    = "events:read"
	ScopeEventsWrite   = "events:write"
	ScopeExpensesRead  = "expenses:read"
	ScopeExpensesWrite = "expenses:write"
	ScopeChoresRead    = "chores:read"
	ScopeChoresWrite   = "chores:write"
)

// GrantableScopes 外部签发端点允许选择的权限列表
//
// 注意不包含通配符：对外路径必须显式选择最小权限集
var GrantableScopes = []string{
	ScopeShoppingRead,
	ScopeShoppingWrite,
	ScopeEventsRead,
	ScopeEventsWrite,
	ScopeExpensesRead,
	ScopeExpensesWrite,
	ScopeChoresRead,
	ScopeChoresWrite,
}

// ValidScope 判断权限字符串是否在枚举集合内（含通配符）
func ValidScope(scope string) bool {
	if scope == ScopeWildcard {
		return true
	}
	for _, s := range GrantableScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// GrantableScope 判断权限是否允许由外部签发端点选择（不含通配符）
func GrantableScope(scope string) bool {
	for _, s := range GrantableScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasScope 权限判定
//
// 规则（按顺序）：
//  1. 集合包含通配符 -> 允许
//  2. 集合包含完全匹配项 -> 允许
//  3. 写权限蕴含读权限：要求 "<resource>:read" 时集合包含
//     "<resource>:write" -> 允许（反向不成立）
//
// 纯函数：不做I/O，任意输入都返回确定的布尔值。
func HasScope(scopes []string, required string) bool {
	for _, s := range scopes {
		if s == ScopeWildcard || s == required {
			return true
		}
	}

	resource, action, ok := strings.Cut(required, ":")
	if !ok || action != "read" {
		return false
	}

	writeScope := resource + ":write"
	for _, s := range scopes {
		if s == writeScope {
			return true
		}
	}
	return false
}
