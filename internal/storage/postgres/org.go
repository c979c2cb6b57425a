package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// ========== Organization Repository ==========

// SaveOrganization 保存家庭组
func (s *Store) SaveOrganization(org *domain.Organization) error {
	if org.Slug != "" {
		var existing domain.Organization
		err := s.db.Where("slug = ? AND id <> ?", org.Slug, org.ID).First(&existing).Error
		if err == nil {
			return storage.ErrSlugExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if org.ID == "" {
		org.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	return s.db.Save(org).Error
}

// GetOrganization 根据ID获取家庭组
func (s *Store) GetOrganization(id string) (*domain.Organization, error) {
	var org domain.Organization
	err := s.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}

// GetOrganizationBySlug 根据标识获取家庭组
func (s *Store) GetOrganizationBySlug(slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := s.db.Where("slug = ?", slug).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}

// ListOrganizationsByUserID 查询用户参与的全部家庭组
func (s *Store) ListOrganizationsByUserID(userID string) ([]domain.Organization, error) {
	var orgs []domain.Organization
	err := s.db.
		Joins("JOIN organization_members ON organization_members.org_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}

// DeleteOrganization 删除家庭组及其成员关系
func (s *Store) DeleteOrganization(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("org_id = ?", id).Delete(&domain.OrganizationMember{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.Organization{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrOrgNotFound
		}
		return nil
	})
}

// AddMember 添加家庭组成员
func (s *Store) AddMember(member *domain.OrganizationMember) error {
	var existing domain.OrganizationMember
	err := s.db.Where("org_id = ? AND user_id = ?", member.OrgID, member.UserID).First(&existing).Error
	if err == nil {
		return storage.ErrMemberExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	return s.db.Create(member).Error
}

// GetMember 获取家庭组成员关系
func (s *Store) GetMember(orgID, userID string) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	err := s.db.Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// ListMembers 查询家庭组的全部成员
func (s *Store) ListMembers(orgID string) ([]domain.OrganizationMember, error) {
	var members []domain.OrganizationMember
	err := s.db.Where("org_id = ?", orgID).Order("joined_at ASC").Find(&members).Error
	return members, err
}

// RemoveMember 移除家庭组成员
func (s *Store) RemoveMember(orgID, userID string) error {
	result := s.db.Where("org_id = ? AND user_id = ?", orgID, userID).Delete(&domain.OrganizationMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMemberNotFound
	}
	return nil
}
