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

// ExpenseHandler 开支记账处理器
type ExpenseHandler struct {
	expenseService *service.ExpenseService
	metrics        *monitoring.Metrics
	hub            *websocket.Hub
}

// NewExpenseHandler 创建开支记账处理器
func NewExpenseHandler(expenseService *service.ExpenseService, metrics *monitoring.Metrics, hub *websocket.Hub) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		metrics:        metrics,
		hub:            hub,
	}
}

// splitRequest 单条分摊
type splitRequest struct {
	UserID string  `json:"userId" binding:"required"`
	Amount float64 `json:"amount"`
}

// createExpenseRequest 记账请求
//
// splits 与 splitAmong 二选一：前者指定每人金额（总和须等于开支金额），
// 后者按人数均摊。
type createExpenseRequest struct {
	Amount      float64        `json:"amount" binding:"required"`
	Description string         `json:"description" binding:"required"`
	Category    *string        `json:"category,omitempty"`
	Date        *time.Time     `json:"date,omitempty"`
	Splits      []splitRequest `json:"splits,omitempty"`
	SplitAmong  []string       `json:"splitAmong,omitempty"`
}

// updateExpenseRequest 更新开支请求（不调整分摊）
type updateExpenseRequest struct {
	Amount      *float64   `json:"amount,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// ListExpenses godoc
// @Summary 列出开支
// @Tags Expenses
// @Produce json
// @Security APIKeyAuth
// @Param limit query int false "返回条数上限"
// @Success 200 {object} Response{data=[]domain.Expense}
// @Failure 401 {object} Response
// @Router /api/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
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

	expenses, err := h.expenseService.ListExpenses(identity, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, expenses, len(expenses))
}

// CreateExpense godoc
// @Summary 新增开支
// @Tags Expenses
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body createExpenseRequest true "开支"
// @Success 201 {object} Response{data=domain.Expense}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	splits := make([]service.SplitInput, 0, len(req.Splits))
	for _, s := range req.Splits {
		splits = append(splits, service.SplitInput{UserID: s.UserID, Amount: s.Amount})
	}

	expense, err := h.expenseService.CreateExpense(identity, service.CreateExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Splits:      splits,
		SplitAmong:  req.SplitAmong,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordExpenseCreated()
	}
	h.broadcast(identity, "created", expense)
	Created(c, expense)
}

// GetExpense godoc
// @Summary 获取开支详情
// @Tags Expenses
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "开支ID"
// @Success 200 {object} Response{data=domain.Expense}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
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

	expense, err := h.expenseService.GetExpense(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, expense)
}

// UpdateExpense godoc
// @Summary 更新开支
// @Tags Expenses
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "开支ID"
// @Param request body updateExpenseRequest true "更新字段"
// @Success 200 {object} Response{data=domain.Expense}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/expenses/{id} [patch]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
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

	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	expense, err := h.expenseService.UpdateExpense(identity, id, service.UpdateExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "updated", expense)
	Success(c, expense)
}

// DeleteExpense godoc
// @Summary 删除开支
// @Tags Expenses
// @Security APIKeyAuth
// @Param id path int true "开支ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
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

	if err := h.expenseService.DeleteExpense(identity, id); err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "deleted", gin.H{"id": id})
	Success(c, gin.H{"deleted": true})
}

// SettleSplit godoc
// @Summary 结算一条分摊
// @Description 把指定开支下的一条分摊标记为已结算
// @Tags Expenses
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "开支ID"
// @Param splitId path int true "分摊ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/expenses/{id}/splits/{splitId}/settle [post]
func (h *ExpenseHandler) SettleSplit(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	expenseID, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}
	splitID, err := parseIDParam(c, "splitId")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	if err := h.expenseService.SettleSplit(identity, expenseID, splitID); err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, "settled", gin.H{"expenseId": expenseID, "splitId": splitID})
	Success(c, gin.H{"settled": true})
}

// Balances godoc
// @Summary 查询成员间净余额
// @Description 汇总可见范围内所有未结算分摊形成的净欠款
// @Tags Expenses
// @Produce json
// @Security APIKeyAuth
// @Success 200 {object} Response{data=[]service.Balance}
// @Failure 401 {object} Response
// @Router /api/expenses/balances [get]
func (h *ExpenseHandler) Balances(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	balances, err := h.expenseService.Balances(identity)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, balances, len(balances))
}

func (h *ExpenseHandler) broadcast(identity *domain.Identity, action string, payload interface{}) {
	if h.hub == nil || identity.OrgID == nil {
		return
	}
	h.hub.BroadcastUpdate(*identity.OrgID, websocket.UpdateExpense, action, payload)
}
