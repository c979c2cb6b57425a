package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/storage"
)

var (
	ErrChoreTitleRequired   = errors.New("chore title is required")
	ErrChoreFrequencyBad    = errors.New("chore frequency invalid")
	ErrChoreAlreadyComplete = errors.New("chore already completed")
)

// ChoreService 家务任务业务逻辑服务
//
// 周期性家务完成后不会消失：后台滚动任务在到期日过后把它重置为
// 待办并顺延到下一个周期。
type ChoreService struct {
	repo    storage.ChoreRepository
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewChoreService 创建家务服务
func NewChoreService(repo storage.ChoreRepository, logger *zap.Logger) *ChoreService {
	return &ChoreService{repo: repo, logger: logger}
}

// SetMetrics 设置滚动计数的指标采集，未设置时只打日志
func (s *ChoreService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// CreateChoreInput 新建家务的输入参数
type CreateChoreInput struct {
	Title       string
	Description *string
	Frequency   *domain.ChoreFrequency
	DueDate     *time.Time
	AssignedTo  *string
}

// CreateChore 新建家务任务
func (s *ChoreService) CreateChore(identity *domain.Identity, input CreateChoreInput) (*domain.Chore, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrChoreTitleRequired
	}
	if input.Frequency != nil && !domain.ValidFrequency(*input.Frequency) {
		return nil, ErrChoreFrequencyBad
	}
	if err := checkContent(&title, input.Description); err != nil {
		return nil, err
	}

	chore := &domain.Chore{
		Title:       title,
		Description: input.Description,
		Frequency:   input.Frequency,
		DueDate:     input.DueDate,
		Status:      domain.ChoreStatusPending,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   identity.UserID,
		OrgID:       identity.OrgID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.repo.SaveChore(chore); err != nil {
		return nil, err
	}
	return chore, nil
}

// ListChores 列出可见的家务任务
//
// includeCompleted 为 false 时只返回待办。
func (s *ChoreService) ListChores(identity *domain.Identity, includeCompleted bool) ([]domain.Chore, error) {
	chores, err := s.repo.ListChores(includeCompleted)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Chore, 0, len(chores))
	for _, chore := range chores {
		if canAccess(identity, chore.OrgID, chore.CreatedBy) {
			visible = append(visible, chore)
		}
	}
	return visible, nil
}

// GetChore 获取单个家务任务
func (s *ChoreService) GetChore(identity *domain.Identity, id uint) (*domain.Chore, error) {
	chore, err := s.repo.GetChore(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(identity, chore.OrgID, chore.CreatedBy) {
		return nil, storage.ErrChoreNotFound
	}
	return chore, nil
}

// UpdateChoreInput 更新家务的输入参数
type UpdateChoreInput struct {
	Title       *string
	Description *string
	Frequency   *domain.ChoreFrequency
	DueDate     *time.Time
	AssignedTo  *string
}

// UpdateChore 更新家务字段
func (s *ChoreService) UpdateChore(identity *domain.Identity, id uint, input UpdateChoreInput) (*domain.Chore, error) {
	chore, err := s.GetChore(identity, id)
	if err != nil {
		return nil, err
	}

	if err := checkContent(input.Title, input.Description); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrChoreTitleRequired
		}
		chore.Title = title
	}
	if input.Description != nil {
		chore.Description = input.Description
	}
	if input.Frequency != nil {
		if !domain.ValidFrequency(*input.Frequency) {
			return nil, ErrChoreFrequencyBad
		}
		chore.Frequency = input.Frequency
	}
	if input.DueDate != nil {
		chore.DueDate = input.DueDate
	}
	if input.AssignedTo != nil {
		chore.AssignedTo = input.AssignedTo
	}
	chore.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateChore(chore); err != nil {
		return nil, err
	}
	return chore, nil
}

// CompleteChore 把家务标记为已完成
//
// 记录完成人和完成时间。周期性家务之后由滚动任务重新激活。
func (s *ChoreService) CompleteChore(identity *domain.Identity, id uint) (*domain.Chore, error) {
	chore, err := s.GetChore(identity, id)
	if err != nil {
		return nil, err
	}
	if chore.Status == domain.ChoreStatusCompleted {
		return nil, ErrChoreAlreadyComplete
	}

	now := time.Now().UTC()
	chore.Status = domain.ChoreStatusCompleted
	chore.CompletedBy = &identity.UserID
	chore.CompletedAt = &now
	chore.UpdatedAt = now

	if err := s.repo.UpdateChore(chore); err != nil {
		return nil, err
	}
	return chore, nil
}

// ReopenChore 把已完成的家务重新置为待办
func (s *ChoreService) ReopenChore(identity *domain.Identity, id uint) (*domain.Chore, error) {
	chore, err := s.GetChore(identity, id)
	if err != nil {
		return nil, err
	}

	chore.Status = domain.ChoreStatusPending
	chore.CompletedBy = nil
	chore.CompletedAt = nil
	chore.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateChore(chore); err != nil {
		return nil, err
	}
	return chore, nil
}

// DeleteChore 删除家务任务
func (s *ChoreService) DeleteChore(identity *domain.Identity, id uint) error {
	if _, err := s.GetChore(identity, id); err != nil {
		return err
	}
	return s.repo.DeleteChore(id)
}

// RollRecurring 重置到期的周期性家务
//
// 由后台定时任务周期调用，返回本轮处理的数量。
func (s *ChoreService) RollRecurring() (int, error) {
	count, err := s.repo.RollCompletedChores(time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if s.metrics != nil {
			s.metrics.RecordChoresRolled(count)
		}
		s.logger.Info("rolled recurring chores", zap.Int("count", count))
	}
	return count, nil
}

// StartRollLoop 启动周期性家务滚动循环，直到 stop 关闭
func (s *ChoreService) StartRollLoop(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.RollRecurring(); err != nil {
				s.logger.Error("recurring chore roll failed", zap.Error(err))
			}
		}
	}
}
