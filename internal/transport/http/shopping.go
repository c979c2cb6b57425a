package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/middleware"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
	"nexo/backend/internal/websocket"
)

// ShoppingHandler 购物清单处理器
type ShoppingHandler struct {
	shoppingService *service.ShoppingService
	metrics         *monitoring.Metrics
	hub             *websocket.Hub
}

// NewShoppingHandler 创建购物清单处理器
func NewShoppingHandler(shoppingService *service.ShoppingService, metrics *monitoring.Metrics, hub *websocket.Hub) *ShoppingHandler {
	return &ShoppingHandler{
		shoppingService: shoppingService,
		metrics:         metrics,
		hub:             hub,
	}
}

// createItemRequest 新增购物项请求
type createItemRequest struct {
	Name     string   `json:"name" binding:"required"`
	Quantity int      `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Category *string  `json:"category,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Currency *string  `json:"currency,omitempty"`
	URL      *string  `json:"url,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// updateItemRequest 更新购物项请求，全部字段可选
type updateItemRequest struct {
	Name     *string  `json:"name,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Category *string  `json:"category,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Currency *string  `json:"currency,omitempty"`
	URL      *string  `json:"url,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

func itemTypePtr(s *string) *domain.ItemType {
	if s == nil {
		return nil
	}
	t := domain.ItemType(*s)
	return &t
}

// ListItems godoc
// @Summary 列出购物项
// @Description 列出当前密钥可见范围内的购物项，支持按分类和勾选状态过滤
// @Tags Shopping
// @Produce json
// @Security APIKeyAuth
// @Param type query string false "按分类过滤"
// @Param checked query bool false "按勾选状态过滤"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} Response{data=[]domain.ShoppingItem}
// @Failure 401 {object} Response
// @Router /api/shopping [get]
func (h *ShoppingHandler) ListItems(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var filter domain.ShoppingFilter
	if v := c.Query("type"); v != "" {
		t := domain.ItemType(v)
		filter.Type = &t
	}
	if v := c.Query("checked"); v != "" {
		checked, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "checked must be a boolean")
			return
		}
		filter.Checked = &checked
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			BadRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	items, err := h.shoppingService.ListItems(identity, filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, items, len(items))
}

// CreateItem godoc
// @Summary 新增购物项
// @Tags Shopping
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body createItemRequest true "购物项"
// @Success 201 {object} Response{data=domain.ShoppingItem}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/shopping [post]
func (h *ShoppingHandler) CreateItem(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	item, err := h.shoppingService.CreateItem(identity, service.CreateItemInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Type:     itemTypePtr(req.Type),
		Category: req.Category,
		Priority: req.Priority,
		Price:    req.Price,
		Currency: req.Currency,
		URL:      req.URL,
		Notes:    req.Notes,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordShoppingItemCreated()
	}
	h.broadcast(identity, websocket.UpdateShopping, "created", item)
	Created(c, item)
}

// GetItem godoc
// @Summary 获取购物项
// @Tags Shopping
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "购物项ID"
// @Success 200 {object} Response{data=domain.ShoppingItem}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/shopping/{id} [get]
func (h *ShoppingHandler) GetItem(c *gin.Context) {
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

	item, err := h.shoppingService.GetItem(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// UpdateItem godoc
// @Summary 更新购物项
// @Tags Shopping
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "购物项ID"
// @Param request body updateItemRequest true "更新字段"
// @Success 200 {object} Response{data=domain.ShoppingItem}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/shopping/{id} [patch]
func (h *ShoppingHandler) UpdateItem(c *gin.Context) {
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

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	item, err := h.shoppingService.UpdateItem(identity, id, service.UpdateItemInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Type:     itemTypePtr(req.Type),
		Category: req.Category,
		Priority: req.Priority,
		Price:    req.Price,
		Currency: req.Currency,
		URL:      req.URL,
		Notes:    req.Notes,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, websocket.UpdateShopping, "updated", item)
	Success(c, item)
}

// ToggleItem godoc
// @Summary 切换购物项勾选状态
// @Tags Shopping
// @Produce json
// @Security APIKeyAuth
// @Param id path int true "购物项ID"
// @Success 200 {object} Response{data=domain.ShoppingItem}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/shopping/{id}/toggle [post]
func (h *ShoppingHandler) ToggleItem(c *gin.Context) {
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

	item, err := h.shoppingService.ToggleItem(identity, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, websocket.UpdateShopping, "toggled", item)
	Success(c, item)
}

// DeleteItem godoc
// @Summary 删除购物项
// @Tags Shopping
// @Security APIKeyAuth
// @Param id path int true "购物项ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/shopping/{id} [delete]
func (h *ShoppingHandler) DeleteItem(c *gin.Context) {
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

	if err := h.shoppingService.DeleteItem(identity, id); err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, websocket.UpdateShopping, "deleted", gin.H{"id": id})
	Success(c, gin.H{"deleted": true})
}

// ClearChecked godoc
// @Summary 清除已勾选的购物项
// @Description 删除当前密钥可见范围内所有已勾选的购物项
// @Tags Shopping
// @Produce json
// @Security APIKeyAuth
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /api/shopping/checked [delete]
func (h *ShoppingHandler) ClearChecked(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	count, err := h.shoppingService.ClearChecked(identity)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.broadcast(identity, websocket.UpdateShopping, "cleared", gin.H{"count": count})
	Success(c, gin.H{"deleted": count})
}

// broadcast 把变更推送给同一家庭组的在线成员
func (h *ShoppingHandler) broadcast(identity *domain.Identity, kind websocket.UpdateKind, action string, payload interface{}) {
	if h.hub == nil || identity.OrgID == nil {
		return
	}
	h.hub.BroadcastUpdate(*identity.OrgID, kind, action, payload)
}
