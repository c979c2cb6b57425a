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

// ChoreHandler 家务任务处理器
type ChoreHandler struct {
	choreService *service.ChoreService
	metrics      *monitoring.Metrics
	hub          *websocket.Hub
}

// NewChoreHandler 创建家务任务处理器
func NewChoreHandler(choreService *service.ChoreService, metrics *monitoring.Metrics, hub *websocket.Hub) *ChoreHandler {
	return &ChoreHandler{
		choreService: choreService,
		metrics:      metrics,
		hub:          hub,
	}
}

// createChoreRequest 新建家务请求
type createChoreRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description,omitempty"`
	Frequency   *string    `json:"frequency,omitempty"` // once/daily/weekly/monthly
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
}

// updateChoreRequest 更新家务请求，全部字段可选
type updateChoreRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Frequency   *string    `json:"frequency,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
}

func frequencyPtr(s *string) *domain.ChoreFrequency {
	if s == nil {
		return nil
	}
	f := domain.ChoreFrequency(*s)
	return &f
}

// ListChores godoc
// @Summary 列出家务任务
// @Tags Chores
// @Produce json
// @Security APIKeyAuth
// @Param includeCompleted query bool false "是否包含已完成任务"
// @Success 200 {object} Response{data=[]domain.Chore}
// @Failure 401 {object} Response
// @Router /api/chores [get]
func (h *ChoreHandler) ListChores(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	includeCompleted := false
	if v := c.Query("includeCompleted"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "includeCompleted must be a boolean")
			return
		}
		includeCompleted = parsed
	}

	chores, err := h.choreService.ListChores(identity, includeCompleted)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, chores, len(chores))
}

// CreateChore godoc
// @Summary 新建家务任务
// @Tags Chores
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body createChoreRequest true "家务"
// @Success 201 {object} Response{data=domain.Chore}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/chores [post]
func (h *ChoreHandler) CreateChore(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var req createChoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	chore, err := h.choreService.CreateChore(identity, service.CreateChoreInput{
		Title:       req.Title,
		Description: req.Description,
		Frequency:   frequencyPtr(req.Frequency),
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "created", chore)
	Created(c, chore)
}

// GetChore godoc
// @Summary 获取家务任务
// @Tags Chores
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "家务ID"
// @Success 200 {object} Response{data=domain.Chore}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/chores/{id} [get]
func (h *ChoreHandler) GetChore(c *gin.Context) {
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

	chore, err := h.choreService.GetChore(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, chore)
}

// UpdateChore godoc
// @Summary 更新家务任务
// @Tags Chores
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "家务ID"
// @Param request body updateChoreRequest true "更新字段"
// @Success 200 {object} Response{data=domain.Chore}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/chores/{id} [patch]
func (h *ChoreHandler) UpdateChore(c *gin.Context) {
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

	var req updateChoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	chore, err := h.choreService.UpdateChore(identity, id, service.UpdateChoreInput{
		Title:       req.Title,
		Description: req.Description,
		Frequency:   frequencyPtr(req.Frequency),
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "updated", chore)
	Success(c, chore)
}

// CompleteChore godoc
// @Summary 完成家务任务
// @Description 标记任务完成并记录完成人，重复完成返回冲突
// @Tags Chores
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "家务ID"
// @Success 200 {object} Response{data=domain.Chore}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /api/chores/{id}/complete [post]
func (h *ChoreHandler) CompleteChore(c *gin.Context) {
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

	chore, err := h.choreService.CompleteChore(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordChoreCompleted()
	}
	h.broadcast(identity, "completed", chore)
	Success(c, chore)
}

// ReopenChore godoc
// @Summary 重新打开家务任务
// @Tags Chores
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "家务ID"
// @Success 200 {object} Response{data=domain.Chore}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/chores/{id}/reopen [post]
func (h *ChoreHandler) ReopenChore(c *gin.Context) {
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

	chore, err := h.choreService.ReopenChore(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "reopened", chore)
	Success(c, chore)
}

// DeleteChore godoc
// @Summary 删除家务任务
// @Tags Chores
// @Security APIKeyAuth
// @Param id path int true "家务ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/chores/{id} [delete]
func (h *ChoreHandler) DeleteChore(c *gin.Context) {
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

	if err := h.choreService.DeleteChore(identity, id); err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "deleted", gin.H{"id": id})
	Success(c, gin.H{"deleted": true})
}

func (h *ChoreHandler) broadcast(identity *domain.Identity, action string, payload interface{}) {
	if h.hub == nil || identity.OrgID == nil {
		return
	}
	h.hub.BroadcastUpdate(*identity.OrgID, websocket.UpdateChore, action, payload)
}
