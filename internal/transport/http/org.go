package httptransport

import (
	"github.com/gin-gonic/gin"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/service"
)

// OrgHandler 家庭组管理处理器
type OrgHandler struct {
	orgService *service.OrganizationService
}

// NewOrgHandler 创建家庭组处理器
func NewOrgHandler(orgService *service.OrganizationService) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

// createOrgRequest 创建家庭组请求
type createOrgRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug,omitempty"` // 可选，留空时从名称派生
}

// addMemberRequest 添加成员请求
type addMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role,omitempty"` // admin|member，默认member
}

// CreateOrg godoc
// @Summary 创建家庭组
// @Description 创建者自动成为管理员成员
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createOrgRequest true "家庭组"
// @Success 201 {object} Response{data=domain.Organization}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 409 {object} Response
// @Router /v1/orgs [post]
func (h *OrgHandler) CreateOrg(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req createOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	org, err := h.orgService.CreateOrganization(userID.(string), service.CreateOrgInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, org)
}

// ListOrgs godoc
// @Summary 列出所属家庭组
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]domain.Organization}
// @Failure 401 {object} Response
// @Router /v1/orgs [get]
func (h *OrgHandler) ListOrgs(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	orgs, err := h.orgService.ListOrganizations(userID.(string))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, orgs, len(orgs))
}

// GetOrg godoc
// @Summary 获取家庭组详情
// @Description 仅成员可见，非成员与不存在同样返回404
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "家庭组ID"
// @Success 200 {object} Response{data=domain.Organization}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orgs/{id} [get]
func (h *OrgHandler) GetOrg(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	org, err := h.orgService.GetOrganization(c.Param("id"), userID.(string))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, org)
}

// ListMembers godoc
// @Summary 列出家庭组成员
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "家庭组ID"
// @Success 200 {object} Response{data=[]domain.OrganizationMember}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orgs/{id}/members [get]
func (h *OrgHandler) ListMembers(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	members, err := h.orgService.ListMembers(c.Param("id"), userID.(string))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithCount(c, members, len(members))
}

// AddMember godoc
// @Summary 添加家庭组成员
// @Description 仅管理员可操作
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "家庭组ID"
// @Param request body addMemberRequest true "成员信息"
// @Success 201 {object} Response{data=domain.OrganizationMember}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 409 {object} Response
// @Router /v1/orgs/{id}/members [post]
func (h *OrgHandler) AddMember(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	role := domain.OrgRole(req.Role)
	member, err := h.orgService.AddMember(c.Param("id"), userID.(string), req.UserID, role)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, member)
}

// RemoveMember godoc
// @Summary 移除家庭组成员
// @Description 管理员可移除任何人，普通成员只能移除自己；最后一名管理员受保护
// @Tags Organizations
// @Security BearerAuth
// @Param id path string true "家庭组ID"
// @Param userId path string true "成员用户ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orgs/{id}/members/{userId} [delete]
func (h *OrgHandler) RemoveMember(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.orgService.RemoveMember(c.Param("id"), userID.(string), c.Param("userId")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"removed": true})
}

// DeleteOrg godoc
// @Summary 删除家庭组
// @Description 仅管理员可操作
// @Tags Organizations
// @Security BearerAuth
// @Param id path string true "家庭组ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orgs/{id} [delete]
func (h *OrgHandler) DeleteOrg(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.orgService.DeleteOrganization(c.Param("id"), userID.(string)); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
