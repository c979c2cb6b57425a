package memory

import (
	"sort"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// SaveOrganization 保存家庭组，标识重复时返回错误。
func (s *Store) SaveOrganization(org *domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.Slug != "" {
		if existing, ok := s.bySlug[org.Slug]; ok && existing != org.ID {
			return storage.ErrSlugExists
		}
	}

	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	clone := *org
	s.orgs[org.ID] = &clone
	if org.Slug != "" {
		s.bySlug[org.Slug] = org.ID
	}
	return nil
}

// GetOrganization 根据 ID 获取家庭组。
func (s *Store) GetOrganization(id string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, storage.ErrOrgNotFound
	}
	clone := *org
	return &clone, nil
}

// GetOrganizationBySlug 根据标识获取家庭组。
func (s *Store) GetOrganizationBySlug(slug string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, storage.ErrOrgNotFound
	}
	clone := *s.orgs[id]
	return &clone, nil
}

// ListOrganizationsByUserID 返回用户参与的全部家庭组。
func (s *Store) ListOrganizationsByUserID(userID string) ([]domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Organization, 0)
	for orgID, orgMembers := range s.members {
		if _, ok := orgMembers[userID]; !ok {
			continue
		}
		if org, ok := s.orgs[orgID]; ok {
			result = append(result, *org)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteOrganization 删除家庭组及其成员关系。
func (s *Store) DeleteOrganization(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return storage.ErrOrgNotFound
	}
	if org.Slug != "" {
		delete(s.bySlug, org.Slug)
	}
	delete(s.orgs, id)
	delete(s.members, id)
	return nil
}

// AddMember 添加家庭组成员。
func (s *Store) AddMember(member *domain.OrganizationMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[member.OrgID]; !ok {
		return storage.ErrOrgNotFound
	}
	orgMembers, ok := s.members[member.OrgID]
	if !ok {
		orgMembers = make(map[string]*domain.OrganizationMember)
		s.members[member.OrgID] = orgMembers
	}
	if _, exists := orgMembers[member.UserID]; exists {
		return storage.ErrMemberExists
	}

	s.nextMemberID++
	member.ID = s.nextMemberID
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}

	clone := *member
	orgMembers[member.UserID] = &clone
	return nil
}

// GetMember 获取家庭组成员关系。
func (s *Store) GetMember(orgID, userID string) (*domain.OrganizationMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[orgID][userID]
	if !ok {
		return nil, storage.ErrMemberNotFound
	}
	clone := *member
	return &clone, nil
}

// ListMembers 返回家庭组的全部成员，按加入时间升序。
func (s *Store) ListMembers(orgID string) ([]domain.OrganizationMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orgs[orgID]; !ok {
		return nil, storage.ErrOrgNotFound
	}
	result := make([]domain.OrganizationMember, 0, len(s.members[orgID]))
	for _, member := range s.members[orgID] {
		result = append(result, *member)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result, nil
}

// RemoveMember 移除家庭组成员。
func (s *Store) RemoveMember(orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[orgID][userID]; !ok {
		return storage.ErrMemberNotFound
	}
	delete(s.members[orgID], userID)
	return nil
}
