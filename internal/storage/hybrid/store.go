package hybrid

import (
	"fmt"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage/postgres"
	"nexo/backend/internal/storage/redis"
)

// apiKeyCacheTTL 按哈希缓存 API Key 的有效期。
//
// 撤销和删除会主动清除缓存，TTL 只兜底直接改库这类旁路写入。
const apiKeyCacheTTL = 5 * time.Minute

// Store 混合存储实现，结合 PostgreSQL 和 Redis
type Store struct {
	postgres *postgres.Store
	redis    *redis.Cache
}

// NewStore 创建混合存储实例 (PostgreSQL)
func NewStore(postgresDSN, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	return NewStoreWithType("postgres", postgresDSN, redisAddr, redisPassword, redisDB)
}

// NewStoreWithType 创建混合存储实例（指定数据库类型）
func NewStoreWithType(dbType, dsn, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	var dbStore *postgres.Store
	var err error

	switch dbType {
	case "mysql":
		dbStore, err = postgres.NewMySQLStore(dsn)
	case "postgres", "postgresql":
		dbStore, err = postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", dbType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		postgres: dbStore,
		redis:    redisCache,
	}, nil
}

// Cache 返回底层的 Redis 缓存，供 WebSocket 推送等场景直接使用
func (s *Store) Cache() *redis.Cache {
	return s.redis
}

// ========== API Key Repository ==========

// SaveAPIKey 保存API Key
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	// 只写 PostgreSQL，验证路径首次查询时再缓存
	return s.postgres.SaveAPIKey(apiKey)
}

// GetAPIKey 根据ID获取API Key
func (s *Store) GetAPIKey(id uint) (*domain.APIKey, error) {
	return s.postgres.GetAPIKey(id)
}

// GetAPIKeyByHash 根据哈希获取API Key
func (s *Store) GetAPIKeyByHash(hash string) (*domain.APIKey, error) {
	// 先尝试从 Redis 获取
	if apiKey, err := s.redis.GetCachedAPIKeyByHash(hash); err == nil {
		return apiKey, nil
	}

	// 从 PostgreSQL 获取
	apiKey, err := s.postgres.GetAPIKeyByHash(hash)
	if err != nil {
		return nil, err
	}

	// 写回缓存，失败不影响主流程
	s.redis.CacheAPIKeyByHash(apiKey, apiKeyCacheTTL)

	return apiKey, nil
}

// ListAPIKeysByUserID 列出用户的所有API Key
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	// 列表直接从 PostgreSQL 获取（不缓存）
	return s.postgres.ListAPIKeysByUserID(userID)
}

// DeactivateAPIKey 停用指定用户名下的API Key
func (s *Store) DeactivateAPIKey(id uint, userID string) (bool, error) {
	ok, err := s.postgres.DeactivateAPIKey(id, userID)
	if err != nil || !ok {
		return ok, err
	}

	// 停用后立即废弃缓存，避免缓存窗口内旧状态继续放行
	s.invalidateAPIKeyCache(id)

	return true, nil
}

// DeleteAPIKey 删除指定用户名下的API Key
func (s *Store) DeleteAPIKey(id uint, userID string) (bool, error) {
	// 先取哈希用于清缓存
	s.invalidateAPIKeyCache(id)

	return s.postgres.DeleteAPIKey(id, userID)
}

// TouchAPIKey 更新API Key最后使用时间
func (s *Store) TouchAPIKey(id uint, usedAt time.Time) error {
	// 最后使用时间不在缓存中维护，缓存副本到期后自然刷新
	return s.postgres.TouchAPIKey(id, usedAt)
}

func (s *Store) invalidateAPIKeyCache(id uint) {
	if apiKey, err := s.postgres.GetAPIKey(id); err == nil {
		s.redis.DeleteCachedAPIKeyByHash(apiKey.KeyHash)
	}
}

// ========== Shopping Repository ==========

func (s *Store) SaveShoppingItem(item *domain.ShoppingItem) error {
	return s.postgres.SaveShoppingItem(item)
}

func (s *Store) GetShoppingItem(id uint) (*domain.ShoppingItem, error) {
	return s.postgres.GetShoppingItem(id)
}

func (s *Store) ListShoppingItems(filter domain.ShoppingFilter) ([]domain.ShoppingItem, error) {
	return s.postgres.ListShoppingItems(filter)
}

func (s *Store) UpdateShoppingItem(item *domain.ShoppingItem) error {
	return s.postgres.UpdateShoppingItem(item)
}

func (s *Store) DeleteShoppingItem(id uint) error {
	return s.postgres.DeleteShoppingItem(id)
}

// ========== Event Repository ==========

func (s *Store) SaveEvent(event *domain.Event) error {
	return s.postgres.SaveEvent(event)
}

func (s *Store) GetEvent(id uint) (*domain.Event, error) {
	return s.postgres.GetEvent(id)
}

func (s *Store) ListEvents(filter domain.EventFilter) ([]domain.Event, error) {
	return s.postgres.ListEvents(filter)
}

func (s *Store) UpdateEvent(event *domain.Event) error {
	return s.postgres.UpdateEvent(event)
}

func (s *Store) DeleteEvent(id uint) error {
	return s.postgres.DeleteEvent(id)
}

// ========== Expense Repository ==========

func (s *Store) SaveExpense(expense *domain.Expense) error {
	return s.postgres.SaveExpense(expense)
}

func (s *Store) GetExpense(id uint) (*domain.Expense, error) {
	return s.postgres.GetExpense(id)
}

func (s *Store) ListExpenses(limit int) ([]domain.Expense, error) {
	return s.postgres.ListExpenses(limit)
}

func (s *Store) UpdateExpense(expense *domain.Expense) error {
	return s.postgres.UpdateExpense(expense)
}

func (s *Store) DeleteExpense(id uint) error {
	return s.postgres.DeleteExpense(id)
}

func (s *Store) SettleSplit(splitID uint, settledAt time.Time) error {
	return s.postgres.SettleSplit(splitID, settledAt)
}

// ========== Chore Repository ==========

func (s *Store) SaveChore(chore *domain.Chore) error {
	return s.postgres.SaveChore(chore)
}

func (s *Store) GetChore(id uint) (*domain.Chore, error) {
	return s.postgres.GetChore(id)
}

func (s *Store) ListChores(includeCompleted bool) ([]domain.Chore, error) {
	return s.postgres.ListChores(includeCompleted)
}

func (s *Store) UpdateChore(chore *domain.Chore) error {
	return s.postgres.UpdateChore(chore)
}

func (s *Store) DeleteChore(id uint) error {
	return s.postgres.DeleteChore(id)
}

func (s *Store) RollCompletedChores(now time.Time) (int, error) {
	return s.postgres.RollCompletedChores(now)
}

// ========== User Repository ==========

// CreateUser 创建新用户
//
// 用户不进 Redis，PasswordHash 带 json:"-" 标签，序列化会丢字段。
func (s *Store) CreateUser(user *domain.User) error {
	return s.postgres.CreateUser(user)
}

func (s *Store) GetUserByID(id string) (*domain.User, error) {
	return s.postgres.GetUserByID(id)
}

func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	return s.postgres.GetUserByEmail(email)
}

func (s *Store) UpdateUser(user *domain.User) error {
	return s.postgres.UpdateUser(user)
}

func (s *Store) UpdateLastLogin(userID string) error {
	return s.postgres.UpdateLastLogin(userID)
}

// ========== Organization Repository ==========

func (s *Store) SaveOrganization(org *domain.Organization) error {
	return s.postgres.SaveOrganization(org)
}

func (s *Store) GetOrganization(id string) (*domain.Organization, error) {
	return s.postgres.GetOrganization(id)
}

func (s *Store) GetOrganizationBySlug(slug string) (*domain.Organization, error) {
	return s.postgres.GetOrganizationBySlug(slug)
}

func (s *Store) ListOrganizationsByUserID(userID string) ([]domain.Organization, error) {
	return s.postgres.ListOrganizationsByUserID(userID)
}

func (s *Store) DeleteOrganization(id string) error {
	return s.postgres.DeleteOrganization(id)
}

func (s *Store) AddMember(member *domain.OrganizationMember) error {
	return s.postgres.AddMember(member)
}

func (s *Store) GetMember(orgID, userID string) (*domain.OrganizationMember, error) {
	return s.postgres.GetMember(orgID, userID)
}

func (s *Store) ListMembers(orgID string) ([]domain.OrganizationMember, error) {
	return s.postgres.ListMembers(orgID)
}

func (s *Store) RemoveMember(orgID, userID string) error {
	return s.postgres.RemoveMember(orgID, userID)
}

// ========== Admin Repository ==========

// ListUsers 列出用户（支持分页和过滤）
func (s *Store) ListUsers(page, pageSize int, search string, isActive *bool) ([]domain.User, int, error) {
	// 管理功能直接从 PostgreSQL 获取（不缓存）
	return s.postgres.ListUsers(page, pageSize, search, isActive)
}

// DeleteUser 删除用户
func (s *Store) DeleteUser(userID string) error {
	return s.postgres.DeleteUser(userID)
}

// ListAllAPIKeys 返回全部用户的 API Key
func (s *Store) ListAllAPIKeys() ([]*domain.APIKey, error) {
	return s.postgres.ListAllAPIKeys()
}

// DeactivateAPIKeyByID 不校验属主地停用 Key
func (s *Store) DeactivateAPIKeyByID(id uint) (bool, error) {
	ok, err := s.postgres.DeactivateAPIKeyByID(id)
	if err != nil || !ok {
		return ok, err
	}
	s.invalidateAPIKeyCache(id)
	return true, nil
}

// GetSystemStatistics 获取系统统计信息
func (s *Store) GetSystemStatistics() (*domain.SystemStatistics, error) {
	// 先尝试从 Redis 获取
	if stats, err := s.redis.GetCachedStatistics(); err == nil {
		return stats, nil
	}

	// 从 PostgreSQL 获取
	stats, err := s.postgres.GetSystemStatistics()
	if err != nil {
		return nil, err
	}

	// 缓存到 Redis（5分钟过期）
	s.redis.CacheStatistics(stats, 5*time.Minute)

	return stats, nil
}

// ========== JWT 黑名单 ==========

// AddToBlacklist 将 JWT 添加到黑名单
func (s *Store) AddToBlacklist(jti string, ttl time.Duration) error {
	// 只使用 Redis 存储黑名单
	return s.redis.AddToBlacklist(jti, ttl)
}

// IsBlacklisted 检查 JWT 是否在黑名单中
func (s *Store) IsBlacklisted(jti string) (bool, error) {
	return s.redis.IsBlacklisted(jti)
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	// 只使用 Redis 进行限流
	return s.redis.IncrementRateLimit(key, window)
}

// GetRateLimit 获取限流计数
func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.redis.GetRateLimit(key)
}

// ========== 会话管理 ==========

// CacheSession 缓存用户会话
func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	// 只使用 Redis 存储会话
	return s.redis.CacheSession(sessionID, userID, ttl)
}

// GetCachedSession 获取缓存的会话
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	return s.redis.GetCachedSession(sessionID)
}

// DeleteCachedSession 删除缓存的会话
func (s *Store) DeleteCachedSession(sessionID string) error {
	return s.redis.DeleteCachedSession(sessionID)
}

// ========== 工具方法 ==========

// Close 关闭存储连接
func (s *Store) Close() error {
	if err := s.postgres.Close(); err != nil {
		return err
	}
	return s.redis.Close()
}

// Health 健康检查
func (s *Store) Health() error {
	if err := s.postgres.Health(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := s.redis.Ping(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// OpenConnections 当前打开的数据库连接数
func (s *Store) OpenConnections() int {
	return s.postgres.OpenConnections()
}
