package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

var (
	ErrOrgNameRequired = errors.New("organization name is required")
	ErrOrgSlugInvalid  = errors.New("organization slug invalid")
	ErrNotOrgAdmin     = errors.New("requires organization admin role")
	ErrLastAdmin       = errors.New("cannot remove the last admin")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// OrganizationService 家庭组业务逻辑服务
type OrganizationService struct {
	repo storage.OrganizationRepository
}

// NewOrganizationService 创建家庭组服务
func NewOrganizationService(repo storage.OrganizationRepository) *OrganizationService {
	return &OrganizationService{repo: repo}
}

// CreateOrgInput 创建家庭组的输入参数
type CreateOrgInput struct {
	Name string
	Slug string // 可选，留空时从名称派生
}

// CreateOrganization 创建家庭组，创建者自动成为管理员
func (s *OrganizationService) CreateOrganization(userID string, input CreateOrgInput) (*domain.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrOrgNameRequired
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug != "" && !slugPattern.MatchString(slug) {
		return nil, ErrOrgSlugInvalid
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.SaveOrganization(org); err != nil {
		return nil, err
	}

	member := &domain.OrganizationMember{
		OrgID:    org.ID,
		UserID:   userID,
		Role:     domain.OrgRoleAdmin,
		JoinedAt: now,
	}
	if err := s.repo.AddMember(member); err != nil {
		return nil, err
	}

	return org, nil
}

// GetOrganization 获取家庭组详情（仅成员可见）
func (s *OrganizationService) GetOrganization(orgID, userID string) (*domain.Organization, error) {
	if _, err := s.repo.GetMember(orgID, userID); err != nil {
		return nil, storage.ErrOrgNotFound
	}
	return s.repo.GetOrganization(orgID)
}

// ListOrganizations 列出用户所属的全部家庭组
func (s *OrganizationService) ListOrganizations(userID string) ([]domain.Organization, error) {
	return s.repo.ListOrganizationsByUserID(userID)
}

// AddMember 添加成员（仅管理员可操作）
func (s *OrganizationService) AddMember(orgID, actorID, newUserID string, role domain.OrgRole) (*domain.OrganizationMember, error) {
	if err := s.requireAdmin(orgID, actorID); err != nil {
		return nil, err
	}
	if role != domain.OrgRoleAdmin {
		role = domain.OrgRoleMember
	}

	member := &domain.OrganizationMember{
		OrgID:    orgID,
		UserID:   newUserID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.repo.AddMember(member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers 列出家庭组成员（仅成员可见）
func (s *OrganizationService) ListMembers(orgID, userID string) ([]domain.OrganizationMember, error) {
	if _, err := s.repo.GetMember(orgID, userID); err != nil {
		return nil, storage.ErrOrgNotFound
	}
	return s.repo.ListMembers(orgID)
}

// RemoveMember 移除成员
//
// 管理员可移除任何人，普通成员只能移除自己（退出家庭组）。
// 最后一名管理员不可移除，避免家庭组无人管理。
func (s *OrganizationService) RemoveMember(orgID, actorID, targetID string) error {
	actor, err := s.repo.GetMember(orgID, actorID)
	if err != nil {
		return storage.ErrOrgNotFound
	}
	if !actor.IsAdmin() && actorID != targetID {
		return ErrNotOrgAdmin
	}

	target, err := s.repo.GetMember(orgID, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		admins, err := s.countAdmins(orgID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	return s.repo.RemoveMember(orgID, targetID)
}

// DeleteOrganization 删除家庭组（仅管理员可操作）
func (s *OrganizationService) DeleteOrganization(orgID, actorID string) error {
	if err := s.requireAdmin(orgID, actorID); err != nil {
		return err
	}
	return s.repo.DeleteOrganization(orgID)
}

func (s *OrganizationService) requireAdmin(orgID, userID string) error {
	member, err := s.repo.GetMember(orgID, userID)
	if err != nil {
		return storage.ErrOrgNotFound
	}
	if !member.IsAdmin() {
		return ErrNotOrgAdmin
	}
	return nil
}

func (s *OrganizationService) countAdmins(orgID string) (int, error) {
	members, err := s.repo.ListMembers(orgID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range members {
		if m.IsAdmin() {
			count++
		}
	}
	return count, nil
}

// slugify 从名称派生URL友好的标识
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
