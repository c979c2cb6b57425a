package service

import (
	"errors"
	"strings"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

var (
	ErrEventTitleRequired = errors.New("event title is required")
	ErrEventDateInvalid   = errors.New("event end date before start date")
)

// EventService 日历事件业务逻辑服务
type EventService struct {
	repo storage.EventRepository
}

// NewEventService 创建日历事件服务
func NewEventService(repo storage.EventRepository) *EventService {
	return &EventService{repo: repo}
}

// CreateEventInput 新建事件的输入参数
type CreateEventInput struct {
	Title       string
	Description *string
	Location    *string
	StartDate   time.Time
	EndDate     *time.Time
	IsAllDay    bool
	Color       *string
}

// CreateEvent 新建日历事件
func (s *EventService) CreateEvent(identity *domain.Identity, input CreateEventInput) (*domain.Event, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrEventTitleRequired
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, ErrEventDateInvalid
	}
	if err := checkContent(&title, input.Description, input.Location); err != nil {
		return nil, err
	}

	color := domain.DefaultEventColor
	if input.Color != nil && *input.Color != "" {
		color = *input.Color
	}

	event := &domain.Event{
		Title:       title,
		Description: input.Description,
		Location:    input.Location,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		IsAllDay:    input.IsAllDay,
		Color:       color,
		CreatedBy:   identity.UserID,
		OrgID:       identity.OrgID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.repo.SaveEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents 按时间窗口列出可见事件（按开始时间升序）
func (s *EventService) ListEvents(identity *domain.Identity, filter domain.EventFilter) ([]domain.Event, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	filter.Limit = 0

	events, err := s.repo.ListEvents(filter)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if canAccess(identity, event.OrgID, event.CreatedBy) {
			visible = append(visible, event)
			if len(visible) >= limit {
				break
			}
		}
	}
	return visible, nil
}

// GetEvent 获取单个事件
func (s *EventService) GetEvent(identity *domain.Identity, id uint) (*domain.Event, error) {
	event, err := s.repo.GetEvent(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(identity, event.OrgID, event.CreatedBy) {
		return nil, storage.ErrEventNotFound
	}
	return event, nil
}

// UpdateEventInput 更新事件的输入参数
type UpdateEventInput struct {
	Title       *string
	Description *string
	Location    *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsAllDay    *bool
	Color       *string
}

// UpdateEvent 更新事件字段
func (s *EventService) UpdateEvent(identity *domain.Identity, id uint, input UpdateEventInput) (*domain.Event, error) {
	event, err := s.GetEvent(identity, id)
	if err != nil {
		return nil, err
	}

	if err := checkContent(input.Title, input.Description, input.Location); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrEventTitleRequired
		}
		event.Title = title
	}
	if input.Description != nil {
		event.Description = input.Description
	}
	if input.Location != nil {
		event.Location = input.Location
	}
	if input.StartDate != nil {
		event.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		event.EndDate = input.EndDate
	}
	if event.EndDate != nil && event.EndDate.Before(event.StartDate) {
		return nil, ErrEventDateInvalid
	}
	if input.IsAllDay != nil {
		event.IsAllDay = *input.IsAllDay
	}
	if input.Color != nil && *input.Color != "" {
		event.Color = *input.Color
	}
	event.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent 删除事件
func (s *EventService) DeleteEvent(identity *domain.Identity, id uint) error {
	if _, err := s.GetEvent(identity, id); err != nil {
		return err
	}
	return s.repo.DeleteEvent(id)
}

// UpcomingEvents 列出从现在开始指定天数内的可见事件
func (s *EventService) UpcomingEvents(identity *domain.Identity, days, limit int) ([]domain.Event, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now().UTC()
	until := now.AddDate(0, 0, days)
	return s.ListEvents(identity, domain.EventFilter{
		From:  &now,
		To:    &until,
		Limit: limit,
	})
}
