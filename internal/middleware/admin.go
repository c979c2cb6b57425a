package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexo/backend/internal/config"
)

// AdminAuth 系统管理员权限中间件
//
// 管理员身份来自配置里的用户ID白名单，不落库：小规模部署里
// 运维改一行环境变量就能增减管理员。
type AdminAuth struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAdminAuth 创建管理员权限中间件
func NewAdminAuth(cfg *config.Config, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{cfg: cfg, logger: logger}
}

// RequireAdmin 要求管理员权限
//
// 必须挂在JWT认证之后。
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			c.Abort()
			return
		}

		userID, ok := userIDVal.(string)
		if !ok || !a.cfg.IsAdmin(userID) {
			a.logger.Warn("admin access denied",
				zap.Any("user_id", userIDVal),
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
