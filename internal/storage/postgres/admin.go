package postgres

import (
	"strings"

	"gorm.io/gorm"

	"nexo/backend/internal/domain"
)

// ========== Admin Repository ==========

// ListUsers 列出用户（支持分页和过滤）
func (s *Store) ListUsers(page, pageSize int, search string, isActive *bool) ([]domain.User, int, error) {
	query := s.db.Model(&domain.User{})

	// 搜索过滤
	if search != "" {
		searchPattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", searchPattern, searchPattern)
	}

	// 激活状态过滤
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var users []domain.User
	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at ASC").Find(&users).Error

	return users, int(total), err
}

// DeleteUser 删除用户及其关联数据
func (s *Store) DeleteUser(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.APIKey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.OrganizationMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&domain.User{}).Error
	})
}

// ListAllAPIKeys 返回全部用户的 API Key，按创建时间倒序
func (s *Store) ListAllAPIKeys() ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// DeactivateAPIKeyByID 不校验属主地停用 Key
func (s *Store) DeactivateAPIKeyByID(id uint) (bool, error) {
	result := s.db.Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("is_active", false)
	return result.RowsAffected > 0, result.Error
}

// GetSystemStatistics 汇总系统统计信息
func (s *Store) GetSystemStatistics() (*domain.SystemStatistics, error) {
	stats := &domain.SystemStatistics{
		ItemsByType: make(map[domain.ItemType]int),
	}

	var count int64

	if err := s.db.Model(&domain.User{}).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.TotalUsers = int(count)

	if err := s.db.Model(&domain.User{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.ActiveUsers = int(count)

	if err := s.db.Model(&domain.APIKey{}).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.TotalAPIKeys = int(count)

	if err := s.db.Model(&domain.APIKey{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.ActiveAPIKeys = int(count)

	if err := s.db.Model(&domain.ShoppingItem{}).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.ShoppingItems = int(count)

	if err := s.db.Model(&domain.ShoppingItem{}).Where("is_checked = ?", false).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.UncheckedItems = int(count)

	if err := s.db.Model(&domain.Event{}).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.Events = int(count)

	if err := s.db.Model(&domain.Expense{}).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.Expenses = int(count)

	if err := s.db.Model(&domain.Chore{}).Where("status = ?", domain.ChoreStatusPending).Count(&count).Error; err != nil {
		return nil, err
	}
	stats.PendingChores = int(count)

	// 按分类统计购物项
	type typeCount struct {
		Type  domain.ItemType
		Count int
	}
	var byType []typeCount
	err := s.db.Model(&domain.ShoppingItem{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&byType).Error
	if err != nil {
		return nil, err
	}
	for _, tc := range byType {
		stats.ItemsByType[tc.Type] = tc.Count
	}

	return stats, nil
}
