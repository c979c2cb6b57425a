package httptransport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/middleware"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
)

// PlaintextWarning 签发响应附带的一次性提示
const PlaintextWarning = "Store this key securely. It will not be shown again."

// APIKeyHandler API密钥管理处理器
//
// 同时服务两条签发路径：/v1/keys/*（JWT会话）和 /api/keys（密钥自举）。
type APIKeyHandler struct {
	apiKeyService *service.APIKeyService
	metrics       *monitoring.Metrics
}

// NewAPIKeyHandler 创建API密钥处理器
func NewAPIKeyHandler(apiKeyService *service.APIKeyService, metrics *monitoring.Metrics) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
		metrics:       metrics,
	}
}

// generateKeyRequest 签发密钥请求
type generateKeyRequest struct {
	Name          string   `json:"name" binding:"required"`   // 密钥名称/用途描述
	Scopes        []string `json:"scopes" binding:"required"` // 显式权限列表，不接受通配符
	OrgID         *string  `json:"orgId,omitempty"`           // 可选的家庭组上下文
	ExpiresInDays *int     `json:"expires_in_days,omitempty"` // 可选有效期（天）
}

// apiKeyResponse 密钥元数据响应
//
// 不含哈希，明文只出现在 generatedKeyResponse 里一次。
type apiKeyResponse struct {
	ID         uint       `json:"id"`
	KeyPrefix  string     `json:"keyPrefix"`
	Name       string     `json:"name"`
	Scopes     []string   `json:"scopes"`
	OrgID      *string    `json:"orgId,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// generatedKeyResponse 签发结果响应，Key 字段是完整明文
type generatedKeyResponse struct {
	apiKeyResponse
	Key string `json:"key"`
}

func toAPIKeyResponse(key *domain.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:         key.ID,
		KeyPrefix:  key.KeyPrefix,
		Name:       key.Name,
		Scopes:     key.ScopeList(),
		OrgID:      key.OrgID,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		ExpiresAt:  key.ExpiresAt,
		LastUsedAt: key.LastUsedAt,
	}
}

// GenerateKey godoc
// @Summary 签发API密钥
// @Description 为当前用户签发新密钥，明文只在本次响应中返回一次
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body generateKeyRequest true "密钥参数"
// @Success 201 {object} generatedKeyResponse
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/keys/generate [post]
func (h *APIKeyHandler) GenerateKey(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req generateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	var expiresIn *time.Duration
	if req.ExpiresInDays != nil {
		if *req.ExpiresInDays <= 0 {
			BadRequest(c, "expires_in_days must be positive")
			return
		}
		d := time.Duration(*req.ExpiresInDays) * 24 * time.Hour
		expiresIn = &d
	}

	result, err := h.apiKeyService.CreateAPIKey(service.CreateAPIKeyInput{
		UserID:    userID.(string),
		OrgID:     req.OrgID,
		Name:      req.Name,
		Scopes:    req.Scopes,
		ExpiresIn: expiresIn,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAPIKeyIssued()
	}

	CreatedWithWarning(c, generatedKeyResponse{
		apiKeyResponse: toAPIKeyResponse(result.Key),
		Key:            result.Plaintext,
	}, PlaintextWarning)
}

// ListKeys godoc
// @Summary 列出API密钥
// @Description 列出当前用户的全部密钥元数据（不含明文）
// @Tags APIKeys
// @Produce json
// @Security BearerAuth
// @Success 200 {array} apiKeyResponse
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/keys [get]
func (h *APIKeyHandler) ListKeys(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	keys, err := h.apiKeyService.ListAPIKeys(userID.(string))
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
// @Summary 撤销API密钥
// @Description 把密钥置为永久停用，重复撤销视为成功
// @Tags APIKeys
// @Security BearerAuth
// @Param id path int true "密钥ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/keys/{id} [delete]
func (h *APIKeyHandler) RevokeKey(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	if err := h.apiKeyService.RevokeAPIKey(userID.(string), id); err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAPIKeyRevoked()
	}
	Success(c, gin.H{"revoked": true})
}

// HardDeleteKey godoc
// @Summary 永久删除API密钥
// @Description 物理删除密钥记录，与撤销不同，列表中将不再可见
// @Tags APIKeys
// @Security BearerAuth
// @Param id path int true "密钥ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/keys/{id}/hard [delete]
func (h *APIKeyHandler) HardDeleteKey(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, MsgInvalidID)
		return
	}

	if err := h.apiKeyService.DeleteAPIKey(userID.(string), id); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// CreateKeyWithKey godoc
// @Summary 用现有密钥签发新密钥
// @Description 密钥自举路径：新密钥归属同一用户和家庭组上下文
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body generateKeyRequest true "密钥参数"
// @Success 201 {object} generatedKeyResponse
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/keys [post]
func (h *APIKeyHandler) CreateKeyWithKey(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	var req generateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	var expiresIn *time.Duration
	if req.ExpiresInDays != nil {
		if *req.ExpiresInDays <= 0 {
			BadRequest(c, "expires_in_days must be positive")
			return
		}
		d := time.Duration(*req.ExpiresInDays) * 24 * time.Hour
		expiresIn = &d
	}

	// 新密钥继承验证身份的家庭组上下文，请求不能越权指定
	result, err := h.apiKeyService.CreateAPIKey(service.CreateAPIKeyInput{
		UserID:    identity.UserID,
		OrgID:     identity.OrgID,
		Name:      req.Name,
		Scopes:    req.Scopes,
		ExpiresIn: expiresIn,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAPIKeyIssued()
	}
	CreatedWithWarning(c, generatedKeyResponse{
		apiKeyResponse: toAPIKeyResponse(result.Key),
		Key:            result.Plaintext,
	}, PlaintextWarning)
}

// ListKeysWithKey godoc
// @Summary 列出API密钥（密钥认证）
// @Tags APIKeys
// @Produce json
// @Security APIKeyAuth
// @Success 200 {array} apiKeyResponse
// @Failure 401 {object} Response
// @Router /api/keys [get]
func (h *APIKeyHandler) ListKeysWithKey(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, middleware.MsgMissingAPIKey)
		return
	}

	keys, err := h.apiKeyService.ListAPIKeys(identity.UserID)
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

// RevokeKeyWithKey godoc
// @Summary 撤销API密钥（密钥认证）
// @Tags APIKeys
// @Security APIKeyAuth
// @Param id path int true "密钥ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /api/keys/{id} [delete]
func (h *APIKeyHandler) RevokeKeyWithKey(c *gin.Context) {
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

	if err := h.apiKeyService.RevokeAPIKey(identity.UserID, id); err != nil {
		RespondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAPIKeyRevoked()
	}
	Success(c, gin.H{"revoked": true})
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
