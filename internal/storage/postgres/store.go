package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// Store PostgreSQL 存储实现
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.Organization{},
		&domain.OrganizationMember{},
		&domain.APIKey{},
		&domain.ShoppingItem{},
		&domain.Event{},
		&domain.Expense{},
		&domain.ExpenseSplit{},
		&domain.Chore{},
	)
}

// ========== API Key Repository ==========

// SaveAPIKey 保存API Key
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	now := time.Now().UTC()
	apiKey.CreatedAt = now
	apiKey.UpdatedAt = now

	err := s.db.Create(apiKey).Error
	if err != nil && isUniqueViolation(err) {
		return storage.ErrDuplicateKeyHash
	}
	return err
}

// isUniqueViolation 判断是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// GetAPIKey 根据ID获取API Key
func (s *Store) GetAPIKey(id uint) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	err := s.db.Where("id = ?", id).First(&apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

// GetAPIKeyByHash 根据哈希获取API Key
func (s *Store) GetAPIKeyByHash(hash string) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	err := s.db.Where("key_hash = ?", hash).First(&apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

// ListAPIKeysByUserID 列出用户的所有API Key
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	var apiKeys []*domain.APIKey
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&apiKeys).Error
	return apiKeys, err
}

// DeactivateAPIKey 停用指定用户名下的API Key
//
// 条件同时包含 id 和 user_id，归属校验和更新在同一条语句内完成。
func (s *Store) DeactivateAPIKey(id uint, userID string) (bool, error) {
	result := s.db.Model(&domain.APIKey{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAPIKey 删除指定用户名下的API Key
func (s *Store) DeleteAPIKey(id uint, userID string) (bool, error) {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.APIKey{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TouchAPIKey 更新API Key最后使用时间
func (s *Store) TouchAPIKey(id uint, usedAt time.Time) error {
	return s.db.Model(&domain.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", usedAt).
		Error
}

// ========== Shopping Repository ==========

// SaveShoppingItem 保存购物项
func (s *Store) SaveShoppingItem(item *domain.ShoppingItem) error {
	item.CreatedAt = time.Now().UTC()
	return s.db.Create(item).Error
}

// GetShoppingItem 根据ID获取购物项
func (s *Store) GetShoppingItem(id uint) (*domain.ShoppingItem, error) {
	var item domain.ShoppingItem
	err := s.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListShoppingItems 按条件查询购物项
func (s *Store) ListShoppingItems(filter domain.ShoppingFilter) ([]domain.ShoppingItem, error) {
	query := s.db.Model(&domain.ShoppingItem{})

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Checked != nil {
		query = query.Where("is_checked = ?", *filter.Checked)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var items []domain.ShoppingItem
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// UpdateShoppingItem 更新购物项
func (s *Store) UpdateShoppingItem(item *domain.ShoppingItem) error {
	result := s.db.Model(&domain.ShoppingItem{}).Where("id = ?", item.ID).Select("*").Omit("id", "created_at").Updates(item)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrItemNotFound
	}
	return nil
}

// DeleteShoppingItem 删除购物项
func (s *Store) DeleteShoppingItem(id uint) error {
	result := s.db.Where("id = ?", id).Delete(&domain.ShoppingItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrItemNotFound
	}
	return nil
}

// ========== Event Repository ==========

// SaveEvent 保存日历事件
func (s *Store) SaveEvent(event *domain.Event) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	return s.db.Create(event).Error
}

// GetEvent 根据ID获取日历事件
func (s *Store) GetEvent(id uint) (*domain.Event, error) {
	var event domain.Event
	err := s.db.Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListEvents 按时间窗口查询日历事件
func (s *Store) ListEvents(filter domain.EventFilter) ([]domain.Event, error) {
	query := s.db.Model(&domain.Event{})

	if filter.From != nil {
		query = query.Where("start_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []domain.Event
	err := query.Order("start_date ASC").Find(&events).Error
	return events, err
}

// UpdateEvent 更新日历事件
func (s *Store) UpdateEvent(event *domain.Event) error {
	event.UpdatedAt = time.Now().UTC()
	result := s.db.Model(&domain.Event{}).Where("id = ?", event.ID).Select("*").Omit("id", "created_at").Updates(event)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEventNotFound
	}
	return nil
}

// DeleteEvent 删除日历事件
func (s *Store) DeleteEvent(id uint) error {
	result := s.db.Where("id = ?", id).Delete(&domain.Event{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEventNotFound
	}
	return nil
}

// ========== Expense Repository ==========

// SaveExpense 保存支出及其分摊记录
func (s *Store) SaveExpense(expense *domain.Expense) error {
	expense.CreatedAt = time.Now().UTC()
	return s.db.Create(expense).Error
}

// GetExpense 根据ID获取支出（含分摊记录）
func (s *Store) GetExpense(id uint) (*domain.Expense, error) {
	var expense domain.Expense
	err := s.db.Preload("Splits").Where("id = ?", id).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrExpenseNotFound
		}
		return nil, err
	}
	return &expense, nil
}

// ListExpenses 查询支出记录，按支出日期倒序
func (s *Store) ListExpenses(limit int) ([]domain.Expense, error) {
	query := s.db.Preload("Splits").Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var expenses []domain.Expense
	err := query.Find(&expenses).Error
	return expenses, err
}

// UpdateExpense 更新支出，分摊记录整体替换
func (s *Store) UpdateExpense(expense *domain.Expense) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Expense{}).
			Where("id = ?", expense.ID).
			Select("amount", "description", "category", "date", "payer_id", "org_id").
			Updates(expense)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrExpenseNotFound
		}

		// 重建分摊记录
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&domain.ExpenseSplit{}).Error; err != nil {
			return err
		}
		for i := range expense.Splits {
			expense.Splits[i].ID = 0
			expense.Splits[i].ExpenseID = expense.ID
		}
		if len(expense.Splits) == 0 {
			return nil
		}
		return tx.Create(&expense.Splits).Error
	})
}

// DeleteExpense 删除支出及其分摊记录
func (s *Store) DeleteExpense(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", id).Delete(&domain.ExpenseSplit{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.Expense{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrExpenseNotFound
		}
		return nil
	})
}

// SettleSplit 标记分摊记录为已结算
func (s *Store) SettleSplit(splitID uint, settledAt time.Time) error {
	result := s.db.Model(&domain.ExpenseSplit{}).
		Where("id = ?", splitID).
		Updates(map[string]interface{}{
			"is_settled": true,
			"settled_at": settledAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrSplitNotFound
	}
	return nil
}

// ========== Chore Repository ==========

// SaveChore 保存家务任务
func (s *Store) SaveChore(chore *domain.Chore) error {
	now := time.Now().UTC()
	chore.CreatedAt = now
	chore.UpdatedAt = now
	if chore.Status == "" {
		chore.Status = domain.ChoreStatusPending
	}
	return s.db.Create(chore).Error
}

// GetChore 根据ID获取家务任务
func (s *Store) GetChore(id uint) (*domain.Chore, error) {
	var chore domain.Chore
	err := s.db.Where("id = ?", id).First(&chore).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrChoreNotFound
		}
		return nil, err
	}
	return &chore, nil
}

// ListChores 查询家务任务，按到期时间升序，无到期时间的排在最后
func (s *Store) ListChores(includeCompleted bool) ([]domain.Chore, error) {
	query := s.db.Model(&domain.Chore{})
	if !includeCompleted {
		query = query.Where("status <> ?", domain.ChoreStatusCompleted)
	}

	var chores []domain.Chore
	err := query.Order("due_date IS NULL, due_date ASC").Find(&chores).Error
	return chores, err
}

// UpdateChore 更新家务任务
func (s *Store) UpdateChore(chore *domain.Chore) error {
	chore.UpdatedAt = time.Now().UTC()
	result := s.db.Model(&domain.Chore{}).Where("id = ?", chore.ID).Select("*").Omit("id", "created_at").Updates(chore)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrChoreNotFound
	}
	return nil
}

// DeleteChore 删除家务任务
func (s *Store) DeleteChore(id uint) error {
	result := s.db.Where("id = ?", id).Delete(&domain.Chore{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrChoreNotFound
	}
	return nil
}

// RollCompletedChores 把到期的周期性家务重置为待办并顺延到期日，返回处理数量
func (s *Store) RollCompletedChores(now time.Time) (int, error) {
	var count int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var due []domain.Chore
		err := tx.Where("status = ? AND frequency IS NOT NULL AND frequency <> ? AND due_date IS NOT NULL AND due_date <= ?",
			domain.ChoreStatusCompleted, domain.FrequencyOnce, now).
			Find(&due).Error
		if err != nil {
			return err
		}

		for i := range due {
			chore := &due[i]
			next := chore.NextDueDate()
			updates := map[string]interface{}{
				"status":       domain.ChoreStatusPending,
				"due_date":     next,
				"completed_by": nil,
				"completed_at": nil,
				"updated_at":   now,
			}
			if err := tx.Model(&domain.Chore{}).Where("id = ?", chore.ID).Updates(updates).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})

	return count, err
}

// ========== User Repository ==========

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	// 检查邮箱是否已存在
	var existing domain.User
	err := s.db.Where("LOWER(email) = LOWER(?)", user.Email).First(&existing).Error
	if err == nil {
		return storage.ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.db.Create(user).Error
}

// GetUserByID 根据ID获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser 更新用户信息
func (s *Store) UpdateUser(user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	return s.db.Save(user).Error
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	now := time.Now().UTC()
	return s.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 健康检查
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// OpenConnections 当前打开的数据库连接数，供指标采样
func (s *Store) OpenConnections() int {
	sqlDB, err := s.db.DB()
	if err != nil {
		return 0
	}
	return sqlDB.Stats().OpenConnections
}
