package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
)

// AdminHandler 系统管理处理器
//
// 所有端点必须挂在管理员允许列表中间件之后。
type AdminHandler struct {
	adminService *service.AdminService
	metrics      *monitoring.Metrics
}

// NewAdminHandler 创建系统管理处理器
func NewAdminHandler(adminService *service.AdminService, metrics *monitoring.Metrics) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		metrics:      metrics,
	}
}

// ListUsers godoc
// @Summary 列出用户
// @Description 分页列出全部用户，支持搜索和按激活状态过滤
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码（默认1）"
// @Param pageSize query int false "每页条数（默认20，最大100）"
// @Param search query string false "按邮箱或昵称模糊匹配"
// @Param isActive query bool false "按激活状态过滤"
// @Success 200 {object} Response{data=service.UserPage}
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var input service.ListUsersInput
	if v := c.Query("page"); v != "" {
		input.Page, _ = strconv.Atoi(v)
	}
	if v := c.Query("pageSize"); v != "" {
		input.PageSize, _ = strconv.Atoi(v)
	}
	input.Search = c.Query("search")
	if v := c.Query("isActive"); v != "" {
		isActive, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "isActive must be a boolean")
			return
		}
		input.IsActive = &isActive
	}

	page, err := h.adminService.ListUsers(input)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, page)
}

// DeleteUser godoc
// @Summary 删除用户
// @Description 删除用户及其名下的API密钥，不能删除自己
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.adminService.DeleteUser(actorID.(string), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// ListAllKeys godoc
// @Summary 列出全部API密钥
// @Description 跨用户列出全部密钥元数据（不含哈希和明文）
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} apiKeyResponse
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /v1/admin/keys [get]
func (h *AdminHandler) ListAllKeys(c *gin.Context) {
	keys, err := h.adminService.ListAllKeys()
	if err != nil {
		RespondError(c, err)
		return
	}

	items := make([]apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, toAPIKeyResponse(key))
	}
	SuccessWithCount(c, items, len(items))
}

// RevokeKey godoc
// @Summary 撤销任意API密钥
// @Description 不校验属主，用于处置泄露的密钥
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "密钥ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/admin/keys/{id} [delete]
func (h *AdminHandler) RevokeKey(c *gin.Context) {
	actorID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	if err := h.adminService.RevokeKey(actorID.(string), id); err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAPIKeyRevoked()
	}
	Success(c, gin.H{"revoked": true})
}

// Statistics godoc
// @Summary 系统统计
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.SystemStatistics}
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /v1/admin/stats [get]
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.adminService.Statistics()
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.UpdateUsersActive(stats.ActiveUsers)
	}
	Success(c, stats)
}
