package storage

import (
	"errors"
	"time"

	"nexo/backend/internal/domain"
)

var (
	// ErrAPIKeyNotFound API Key 未找到错误
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrDuplicateKeyHash API Key 哈希冲突错误
	ErrDuplicateKeyHash = errors.New("api key hash already exists")
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已被注册错误
	ErrEmailExists = errors.New("email already exists")
	// ErrItemNotFound 购物项未找到错误
	ErrItemNotFound = errors.New("shopping item not found")
	// ErrEventNotFound 日程未找到错误
	ErrEventNotFound = errors.New("event not found")
	// ErrExpenseNotFound 支出未找到错误
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrSplitNotFound 分摊记录未找到错误
	ErrSplitNotFound = errors.New("expense split not found")
	// ErrChoreNotFound 家务未找到错误
	ErrChoreNotFound = errors.New("chore not found")
	// ErrOrgNotFound 组织未找到错误
	ErrOrgNotFound = errors.New("organization not found")
	// ErrSlugExists 组织标识已存在错误
	ErrSlugExists = errors.New("organization slug already exists")
	// ErrMemberExists 成员已存在错误
	ErrMemberExists = errors.New("member already exists")
	// ErrMemberNotFound 成员未找到错误
	ErrMemberNotFound = errors.New("member not found")
	// ErrSessionNotFound 会话未找到错误
	ErrSessionNotFound = errors.New("session not found")
)

// APIKeyRepository 定义 API Key 数据存取操作。
type APIKeyRepository interface {
	SaveAPIKey(apiKey *domain.APIKey) error
	GetAPIKey(id uint) (*domain.APIKey, error)
	GetAPIKeyByHash(hash string) (*domain.APIKey, error)
	ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error)
	// DeactivateAPIKey 停用指定用户名下的 Key，返回是否有记录被更新。
	DeactivateAPIKey(id uint, userID string) (bool, error)
	// DeleteAPIKey 删除指定用户名下的 Key，返回是否有记录被删除。
	DeleteAPIKey(id uint, userID string) (bool, error)
	TouchAPIKey(id uint, usedAt time.Time) error
}

// ShoppingRepository 定义购物清单数据存取操作。
type ShoppingRepository interface {
	SaveShoppingItem(item *domain.ShoppingItem) error
	GetShoppingItem(id uint) (*domain.ShoppingItem, error)
	ListShoppingItems(filter domain.ShoppingFilter) ([]domain.ShoppingItem, error)
	UpdateShoppingItem(item *domain.ShoppingItem) error
	DeleteShoppingItem(id uint) error
}

// EventRepository 定义日程数据存取操作。
type EventRepository interface {
	SaveEvent(event *domain.Event) error
	GetEvent(id uint) (*domain.Event, error)
	ListEvents(filter domain.EventFilter) ([]domain.Event, error)
	UpdateEvent(event *domain.Event) error
	DeleteEvent(id uint) error
}

// ExpenseRepository 定义支出数据存取操作。
type ExpenseRepository interface {
	SaveExpense(expense *domain.Expense) error
	GetExpense(id uint) (*domain.Expense, error)
	ListExpenses(limit int) ([]domain.Expense, error)
	UpdateExpense(expense *domain.Expense) error
	DeleteExpense(id uint) error
	SettleSplit(splitID uint, settledAt time.Time) error
}

// ChoreRepository 定义家务数据存取操作。
type ChoreRepository interface {
	SaveChore(chore *domain.Chore) error
	GetChore(id uint) (*domain.Chore, error)
	ListChores(includeCompleted bool) ([]domain.Chore, error)
	UpdateChore(chore *domain.Chore) error
	DeleteChore(id uint) error
	// RollCompletedChores 把到期的周期性家务重置为待办并顺延到期日，返回处理数量。
	RollCompletedChores(now time.Time) (int, error)
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	UpdateLastLogin(userID string) error
}

// OrganizationRepository 定义组织数据存取操作。
type OrganizationRepository interface {
	SaveOrganization(org *domain.Organization) error
	GetOrganization(id string) (*domain.Organization, error)
	GetOrganizationBySlug(slug string) (*domain.Organization, error)
	ListOrganizationsByUserID(userID string) ([]domain.Organization, error)
	DeleteOrganization(id string) error
	AddMember(member *domain.OrganizationMember) error
	GetMember(orgID, userID string) (*domain.OrganizationMember, error)
	ListMembers(orgID string) ([]domain.OrganizationMember, error)
	RemoveMember(orgID, userID string) error
}

// AdminRepository 定义管理员数据存取操作。
type AdminRepository interface {
	ListUsers(page, pageSize int, search string, isActive *bool) ([]domain.User, int, error)
	DeleteUser(userID string) error
	ListAllAPIKeys() ([]*domain.APIKey, error)
	// DeactivateAPIKeyByID 不校验属主地停用 Key，返回是否有记录被更新。
	DeactivateAPIKeyByID(id uint) (bool, error)
	GetSystemStatistics() (*domain.SystemStatistics, error)
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(jti string, ttl time.Duration) error
	IsBlacklisted(jti string) (bool, error)
}

// RateLimitRepository 定义限流操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// SessionRepository 定义会话管理操作。
type SessionRepository interface {
	CacheSession(sessionID string, userID string, ttl time.Duration) error
	GetCachedSession(sessionID string) (string, error)
	DeleteCachedSession(sessionID string) error
}

// Store 定义完整的存储接口。
type Store interface {
	APIKeyRepository
	ShoppingRepository
	EventRepository
	ExpenseRepository
	ChoreRepository
	UserRepository
	OrganizationRepository
	AdminRepository
	JWTRepository
	RateLimitRepository
	SessionRepository

	// 工具方法
	Close() error
	Health() error
}
