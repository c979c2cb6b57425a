package httptransport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/middleware"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
	"nexo/backend/internal/websocket"
)

// EventHandler 日历事件处理器
type EventHandler struct {
	eventService *service.EventService
	metrics      *monitoring.Metrics
	hub          *websocket.Hub
}

// NewEventHandler 创建日历事件处理器
func NewEventHandler(eventService *service.EventService, metrics *monitoring.Metrics, hub *websocket.Hub) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		metrics:      metrics,
		hub:          hub,
	}
}

// createEventRequest 新建事件请求
type createEventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartDate   time.Time  `json:"startDate" binding:"required"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsAllDay    bool       `json:"isAllDay,omitempty"`
	Color       *string    `json:"color,omitempty"`
}

// updateEventRequest 更新事件请求，全部字段可选
type updateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsAllDay    *bool      `json:"isAllDay,omitempty"`
	Color       *string    `json:"color,omitempty"`
}

// ListEvents godoc
// @Summary 列出日历事件
// @Description 列出可见范围内的事件，支持时间窗口过滤
// @Tags Events
// @Produce json
// @Security APIKeyAuth
// @Param from query string false "起始时间（RFC3339）"
// @Param to query string false "截止时间（RFC3339）"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} Response{data=[]domain.Event}
// @Failure 401 {object} Response
// @Router /api/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var filter domain.EventFilter
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(c, "from must be an RFC3339 timestamp")
			return
		}
		filter.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(c, "to must be an RFC3339 timestamp")
			return
		}
		filter.To = &to
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			BadRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	events, err := h.eventService.ListEvents(identity, filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, events, len(events))
}

// UpcomingEvents godoc
// @Summary 列出即将到来的事件
// @Tags Events
// @Produce json
// @Security APIKeyAuth
// @Param days query int false "未来天数（默认7）"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} Response{data=[]domain.Event}
// @Failure 401 {object} Response
// @Router /api/events/upcoming [get]
func (h *EventHandler) UpcomingEvents(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	days := 7
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := h.eventService.UpcomingEvents(identity, days, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, events, len(events))
}

// CreateEvent godoc
// @Summary 新建日历事件
// @Tags Events
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body createEventRequest true "事件"
// @Success 201 {object} Response{data=domain.Event}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	event, err := h.eventService.CreateEvent(identity, service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsAllDay:    req.IsAllDay,
		Color:       req.Color,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordEventCreated()
	}
	h.broadcast(identity, "created", event)
	Created(c, event)
}

// GetEvent godoc
// @Summary 获取日历事件
// @Tags Events
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "事件ID"
// @Success 200 {object} Response{data=domain.Event}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	event, err := h.eventService.GetEvent(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, event)
}

// UpdateEvent godoc
// @Summary 更新日历事件
// @Tags Events
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "事件ID"
// @Param request body updateEventRequest true "更新字段"
// @Success 200 {object} Response{data=domain.Event}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/events/{id} [patch]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	event, err := h.eventService.UpdateEvent(identity, id, service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsAllDay:    req.IsAllDay,
		Color:       req.Color,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "updated", event)
	Success(c, event)
}

// DeleteEvent godoc
// @Summary 删除日历事件
// @Tags Events
// @Security APIKeyAuth
// @Param id path int true "事件ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	if err := h.eventService.DeleteEvent(identity, id); err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "deleted", gin.H{"id": id})
	Success(c, gin.H{"deleted": true})
}

func (h *EventHandler) broadcast(identity *domain.Identity, action string, payload interface{}) {
	if h.hub == nil || identity.OrgID == nil {
		return
	}
	h.hub.BroadcastUpdate(*identity.OrgID, websocket.UpdateEvent, action, payload)
}
