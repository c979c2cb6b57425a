package service

import (
	"errors"

	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

// ErrSelfDelete 管理员不能删除自己的账号
var ErrSelfDelete = errors.New("cannot delete your own account")

// AdminService 系统管理业务逻辑服务
//
// 调用方必须先通过管理员中间件校验身份，服务本身只做业务规则。
type AdminService struct {
	repo   storage.AdminRepository
	logger *zap.Logger
}

// NewAdminService 创建管理服务
func NewAdminService(repo storage.AdminRepository, logger *zap.Logger) *AdminService {
	return &AdminService{repo: repo, logger: logger}
}

// ListUsersInput 用户列表查询参数
type ListUsersInput struct {
	Page     int
	PageSize int
	Search   string // 按邮箱或昵称模糊匹配
	IsActive *bool
}

// UserPage 分页的用户列表
type UserPage struct {
	Users    []domain.User `json:"users"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// ListUsers 分页列出用户
func (s *AdminService) ListUsers(input ListUsersInput) (*UserPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.repo.ListUsers(page, pageSize, input.Search, input.IsActive)
	if err != nil {
		return nil, err
	}
	return &UserPage{
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// DeleteUser 删除用户及其名下的API密钥
func (s *AdminService) DeleteUser(actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfDelete
	}
	if err := s.repo.DeleteUser(targetID); err != nil {
		return err
	}
	s.logger.Info("user deleted by admin",
		zap.String("actor_id", actorID),
		zap.String("target_id", targetID))
	return nil
}

// ListAllKeys 列出全部用户的密钥元数据（不含哈希和明文）
func (s *AdminService) ListAllKeys() ([]*domain.APIKey, error) {
	return s.repo.ListAllAPIKeys()
}

// RevokeKey 不校验属主地撤销任意密钥
func (s *AdminService) RevokeKey(actorID string, id uint) error {
	affected, err := s.repo.DeactivateAPIKeyByID(id)
	if err != nil {
		return err
	}
	if !affected {
		return ErrKeyNotFound
	}
	s.logger.Info("api key revoked by admin",
		zap.String("actor_id", actorID),
		zap.Uint("key_id", id))
	return nil
}

// Statistics 汇总系统统计信息
func (s *AdminService) Statistics() (*domain.SystemStatistics, error) {
	return s.repo.GetSystemStatistics()
}
