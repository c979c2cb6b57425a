package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
)

// APIKeyHeader 携带密钥明文的请求头
const APIKeyHeader = "X-API-Key"

// IdentityKey 上下文中已验证身份的键名
const IdentityKey = "identity"

// MsgMissingAPIKey 未携带密钥时的固定响应消息
const MsgMissingAPIKey = "Missing X-API-Key header"

// MsgInvalidAPIKey 验证失败时的统一响应消息，不区分具体原因
const MsgInvalidAPIKey = "Invalid API key"

// APIKeyAuth API密钥认证中间件
type APIKeyAuth struct {
	apiKeyService *service.APIKeyService
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

// NewAPIKeyAuth 创建API密钥认证中间件，metrics 可为 nil
func NewAPIKeyAuth(apiKeyService *service.APIKeyService, metrics *monitoring.Metrics, logger *zap.Logger) *APIKeyAuth {
	return &APIKeyAuth{
		apiKeyService: apiKeyService,
		metrics:       metrics,
		logger:        logger,
	}
}

// validationResult 把验证失败的内部原因映射为指标标签
//
// 外部响应不区分原因，指标和日志一样属于内部观测，可以区分。
func validationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, service.ErrKeyInvalidFormat):
		return "invalid_format"
	case errors.Is(err, service.ErrKeyNotFound):
		return "not_found"
	case errors.Is(err, service.ErrKeyDisabled):
		return "disabled"
	case errors.Is(err, service.ErrKeyExpired):
		return "expired"
	default:
		return "error"
	}
}

// RequireAPIKey 要求API密钥认证
//
// 所有验证失败对外统一返回401和同一条消息，不区分格式错误、
// 不存在、已停用还是已过期，避免泄露密钥状态；具体原因只进日志。
func (m *APIKeyAuth) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(APIKeyHeader)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   MsgMissingAPIKey,
			})
			c.Abort()
			return
		}

		identity, err := m.apiKeyService.ValidateAPIKey(raw)
		if m.metrics != nil {
			m.metrics.RecordAPIKeyValidation(validationResult(err))
		}
		if err != nil {
			m.logger.Warn("api key rejected",
				zap.String("reason", err.Error()),
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   MsgInvalidAPIKey,
			})
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set("userID", identity.UserID)
		c.Next()
	}
}

// RequireScope 要求密钥具备指定权限
//
// 必须挂在 RequireAPIKey 之后。权限不足返回403并点名缺失的权限，
// 403与401不同：此时密钥本身有效，调用方有权知道缺什么。
func (m *APIKeyAuth) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   MsgMissingAPIKey,
			})
			c.Abort()
			return
		}

		if !identity.HasScope(scope) {
			if m.metrics != nil {
				m.metrics.RecordScopeDenial(scope)
			}
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Missing required scope: %s", scope),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IdentityFrom 从上下文取出已验证的密钥身份
//
// 未经过 RequireAPIKey 的请求返回 nil。
func IdentityFrom(c *gin.Context) *domain.Identity {
	val, exists := c.Get(IdentityKey)
	if !exists {
		return nil
	}
	identity, ok := val.(*domain.Identity)
	if !ok {
		return nil
	}
	return identity
}
