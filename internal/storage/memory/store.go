package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// Store 使用内存保存全部业务数据，主要用于开发验证与单元测试。
type Store struct {
	mu sync.RWMutex

	apiKeys   map[uint]*domain.APIKey // keyID -> apiKey
	byKeyHash map[string]uint         // keyHash -> keyID
	nextKeyID uint

	items      map[uint]*domain.ShoppingItem
	nextItemID uint

	events      map[uint]*domain.Event
	nextEventID uint

	expenses      map[uint]*domain.Expense
	nextExpenseID uint
	nextSplitID   uint

	chores      map[uint]*domain.Chore
	nextChoreID uint

	users   map[string]*domain.User // userID -> user
	byEmail map[string]string       // email -> userID

	orgs         map[string]*domain.Organization
	bySlug       map[string]string                                // slug -> orgID
	members      map[string]map[string]*domain.OrganizationMember // orgID -> userID -> member
	nextMemberID uint

	// JWT 黑名单（jti -> 过期时间）
	blacklist map[string]time.Time

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间

	// 会话缓存（sessionID -> 条目）
	sessions map[string]*sessionEntry
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// sessionEntry 会话缓存条目
type sessionEntry struct {
	UserID    string
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		apiKeys:           make(map[uint]*domain.APIKey),
		byKeyHash:         make(map[string]uint),
		items:             make(map[uint]*domain.ShoppingItem),
		events:            make(map[uint]*domain.Event),
		expenses:          make(map[uint]*domain.Expense),
		chores:            make(map[uint]*domain.Chore),
		users:             make(map[string]*domain.User),
		byEmail:           make(map[string]string),
		orgs:              make(map[string]*domain.Organization),
		bySlug:            make(map[string]string),
		members:           make(map[string]map[string]*domain.OrganizationMember),
		blacklist:         make(map[string]time.Time),
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: time.Now().Add(5 * time.Minute),
		sessions:          make(map[string]*sessionEntry),
	}
}

// SaveAPIKey 保存 API Key，哈希冲突时返回错误。
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKeyHash[apiKey.KeyHash]; ok {
		return storage.ErrDuplicateKeyHash
	}

	s.nextKeyID++
	apiKey.ID = s.nextKeyID
	now := time.Now()
	if apiKey.CreatedAt.IsZero() {
		apiKey.CreatedAt = now
	}
	apiKey.UpdatedAt = now

	clone := *apiKey
	s.apiKeys[apiKey.ID] = &clone
	s.byKeyHash[apiKey.KeyHash] = apiKey.ID
	return nil
}

// GetAPIKey 根据 ID 获取 API Key。
func (s *Store) GetAPIKey(id uint) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	clone := *key
	return &clone, nil
}

// GetAPIKeyByHash 根据哈希获取 API Key。
func (s *Store) GetAPIKeyByHash(hash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKeyHash[hash]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	clone := *s.apiKeys[id]
	return &clone, nil
}

// ListAPIKeysByUserID 返回指定用户的全部 API Key，按创建时间倒序。
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.APIKey, 0)
	for _, key := range s.apiKeys {
		if key.UserID == userID {
			clone := *key
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeactivateAPIKey 停用指定用户名下的 Key。
//
// 记录不存在或不属于该用户时返回 false，已停用的记录重复停用返回 true。
func (s *Store) DeactivateAPIKey(id uint, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok || key.UserID != userID {
		return false, nil
	}
	key.IsActive = false
	key.UpdatedAt = time.Now()
	return true, nil
}

// DeleteAPIKey 删除指定用户名下的 Key。
func (s *Store) DeleteAPIKey(id uint, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok || key.UserID != userID {
		return false, nil
	}
	delete(s.byKeyHash, key.KeyHash)
	delete(s.apiKeys, id)
	return true, nil
}

// TouchAPIKey 更新 Key 的最后使用时间。
func (s *Store) TouchAPIKey(id uint, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	key.LastUsedAt = &usedAt
	return nil
}

// SaveShoppingItem 保存购物项。
func (s *Store) SaveShoppingItem(item *domain.ShoppingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItemID++
	item.ID = s.nextItemID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	clone := *item
	s.items[item.ID] = &clone
	return nil
}

// GetShoppingItem 根据 ID 获取购物项。
func (s *Store) GetShoppingItem(id uint) (*domain.ShoppingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, storage.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

// ListShoppingItems 按条件返回购物项，按创建时间倒序。
func (s *Store) ListShoppingItems(filter domain.ShoppingFilter) ([]domain.ShoppingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ShoppingItem, 0)
	for _, item := range s.items {
		if filter.Type != nil && item.Type != *filter.Type {
			continue
		}
		if filter.Checked != nil && item.IsChecked != *filter.Checked {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateShoppingItem 更新购物项。
func (s *Store) UpdateShoppingItem(item *domain.ShoppingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return storage.ErrItemNotFound
	}
	clone := *item
	s.items[item.ID] = &clone
	return nil
}

// DeleteShoppingItem 删除购物项。
func (s *Store) DeleteShoppingItem(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return storage.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

// SaveEvent 保存日历事件。
func (s *Store) SaveEvent(event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	event.ID = s.nextEventID
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	clone := *event
	s.events[event.ID] = &clone
	return nil
}

// GetEvent 根据 ID 获取日历事件。
func (s *Store) GetEvent(id uint) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, storage.ErrEventNotFound
	}
	clone := *event
	return &clone, nil
}

// ListEvents 按时间窗口返回日历事件，按开始时间升序。
func (s *Store) ListEvents(filter domain.EventFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Event, 0)
	for _, event := range s.events {
		if filter.From != nil && event.StartDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && event.StartDate.After(*filter.To) {
			continue
		}
		result = append(result, *event)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDate.Before(result[j].StartDate)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateEvent 更新日历事件。
func (s *Store) UpdateEvent(event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return storage.ErrEventNotFound
	}
	event.UpdatedAt = time.Now()
	clone := *event
	s.events[event.ID] = &clone
	return nil
}

// DeleteEvent 删除日历事件。
func (s *Store) DeleteEvent(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return storage.ErrEventNotFound
	}
	delete(s.events, id)
	return nil
}

// SaveExpense 保存支出及其分摊记录。
func (s *Store) SaveExpense(expense *domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExpenseID++
	expense.ID = s.nextExpenseID
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	for i := range expense.Splits {
		s.nextSplitID++
		expense.Splits[i].ID = s.nextSplitID
		expense.Splits[i].ExpenseID = expense.ID
	}

	clone := cloneExpense(expense)
	s.expenses[expense.ID] = clone
	return nil
}

// GetExpense 根据 ID 获取支出。
func (s *Store) GetExpense(id uint) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrExpenseNotFound
	}
	return cloneExpense(expense), nil
}

// ListExpenses 返回支出记录，按支出日期倒序。
func (s *Store) ListExpenses(limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		result = append(result, *cloneExpense(expense))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateExpense 更新支出，分摊记录整体替换。
func (s *Store) UpdateExpense(expense *domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[expense.ID]; !ok {
		return storage.ErrExpenseNotFound
	}
	for i := range expense.Splits {
		if expense.Splits[i].ID == 0 {
			s.nextSplitID++
			expense.Splits[i].ID = s.nextSplitID
		}
		expense.Splits[i].ExpenseID = expense.ID
	}
	s.expenses[expense.ID] = cloneExpense(expense)
	return nil
}

// DeleteExpense 删除支出及其分摊记录。
func (s *Store) DeleteExpense(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return storage.ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

// SettleSplit 标记分摊记录为已结算。
func (s *Store) SettleSplit(splitID uint, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, expense := range s.expenses {
		for i := range expense.Splits {
			if expense.Splits[i].ID == splitID {
				expense.Splits[i].IsSettled = true
				expense.Splits[i].SettledAt = &settledAt
				return nil
			}
		}
	}
	return storage.ErrSplitNotFound
}

func cloneExpense(expense *domain.Expense) *domain.Expense {
	clone := *expense
	clone.Splits = make([]domain.ExpenseSplit, len(expense.Splits))
	copy(clone.Splits, expense.Splits)
	return &clone
}

// SaveChore 保存家务任务。
func (s *Store) SaveChore(chore *domain.Chore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChoreID++
	chore.ID = s.nextChoreID
	now := time.Now()
	if chore.CreatedAt.IsZero() {
		chore.CreatedAt = now
	}
	chore.UpdatedAt = now
	if chore.Status == "" {
		chore.Status = domain.ChoreStatusPending
	}

	clone := *chore
	s.chores[chore.ID] = &clone
	return nil
}

// GetChore 根据 ID 获取家务任务。
func (s *Store) GetChore(id uint) (*domain.Chore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chore, ok := s.chores[id]
	if !ok {
		return nil, storage.ErrChoreNotFound
	}
	clone := *chore
	return &clone, nil
}

// ListChores 返回家务任务，按到期时间升序，无到期时间的排在最后。
func (s *Store) ListChores(includeCompleted bool) ([]domain.Chore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Chore, 0)
	for _, chore := range s.chores {
		if !includeCompleted && chore.Status == domain.ChoreStatusCompleted {
			continue
		}
		result = append(result, *chore)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].DueDate, result[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return result, nil
}

// UpdateChore 更新家务任务。
func (s *Store) UpdateChore(chore *domain.Chore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chores[chore.ID]; !ok {
		return storage.ErrChoreNotFound
	}
	chore.UpdatedAt = time.Now()
	clone := *chore
	s.chores[chore.ID] = &clone
	return nil
}

// DeleteChore 删除家务任务。
func (s *Store) DeleteChore(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chores[id]; !ok {
		return storage.ErrChoreNotFound
	}
	delete(s.chores, id)
	return nil
}

// RollCompletedChores 把到期的周期性家务重置为待办并顺延到期日。
func (s *Store) RollCompletedChores(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, chore := range s.chores {
		if chore.Status != domain.ChoreStatusCompleted || !chore.IsRecurring() {
			continue
		}
		if chore.DueDate == nil || chore.DueDate.After(now) {
			continue
		}
		chore.DueDate = chore.NextDueDate()
		chore.Status = domain.ChoreStatusPending
		chore.CompletedBy = nil
		chore.CompletedAt = nil
		chore.UpdatedAt = now
		count++
	}
	return count, nil
}

// CreateUser 创建用户，邮箱重复时返回错误。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrEmailExists
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	clone := *user
	s.users[user.ID] = &clone
	s.byEmail[email] = user.ID
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// GetUserByEmail 根据邮箱获取用户。
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

// UpdateUser 更新用户信息。
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if !strings.EqualFold(old.Email, user.Email) {
		email := strings.ToLower(user.Email)
		if _, exists := s.byEmail[email]; exists {
			return storage.ErrEmailExists
		}
		delete(s.byEmail, strings.ToLower(old.Email))
		s.byEmail[email] = user.ID
	}
	user.UpdatedAt = time.Now()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

// UpdateLastLogin 更新用户最后登录时间。
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

// Close 关闭存储，内存实现为空操作。
func (s *Store) Close() error {
	return nil
}

// Health 检查存储健康状态，内存实现始终可用。
func (s *Store) Health() error {
	return nil
}
