package memory

import (
	"sort"
	"strings"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// ListUsers 分页查询用户列表，支持按邮箱或姓名搜索。
func (s *Store) ListUsers(page, pageSize int, search string, isActive *bool) ([]domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(search)
	matched := make([]domain.User, 0)
	for _, user := range s.users {
		if isActive != nil && user.IsActive != *isActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Email), search) &&
			!strings.Contains(strings.ToLower(user.Name), search) {
			continue
		}
		matched = append(matched, *user)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.User{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// DeleteUser 删除用户及其名下的 API Key。
func (s *Store) DeleteUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	delete(s.byEmail, strings.ToLower(user.Email))
	delete(s.users, userID)

	for id, key := range s.apiKeys {
		if key.UserID == userID {
			delete(s.byKeyHash, key.KeyHash)
			delete(s.apiKeys, id)
		}
	}
	return nil
}

// ListAllAPIKeys 返回全部用户的 API Key，按创建时间倒序。
func (s *Store) ListAllAPIKeys() ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		clone := *key
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeactivateAPIKeyByID 不校验属主地停用 Key。
func (s *Store) DeactivateAPIKeyByID(id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return false, nil
	}
	key.IsActive = false
	key.UpdatedAt = time.Now()
	return true, nil
}

// GetSystemStatistics 汇总系统统计信息。
func (s *Store) GetSystemStatistics() (*domain.SystemStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.SystemStatistics{
		ItemsByType: make(map[domain.ItemType]int),
	}

	stats.TotalUsers = len(s.users)
	for _, user := range s.users {
		if user.IsActive {
			stats.ActiveUsers++
		}
	}

	stats.TotalAPIKeys = len(s.apiKeys)
	for _, key := range s.apiKeys {
		if key.IsActive {
			stats.ActiveAPIKeys++
		}
	}

	stats.ShoppingItems = len(s.items)
	for _, item := range s.items {
		if !item.IsChecked {
			stats.UncheckedItems++
		}
		stats.ItemsByType[item.Type]++
	}

	stats.Events = len(s.events)
	stats.Expenses = len(s.expenses)
	for _, chore := range s.chores {
		if chore.Status == domain.ChoreStatusPending {
			stats.PendingChores++
		}
	}

	return stats, nil
}
