package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/storage"
)

// JWTAuth JWT认证中间件
//
// 除签名和有效期外还检查黑名单：登出后的token在剩余有效期内
// 被拒绝。
type JWTAuth struct {
	jwtManager *jwt.Manager
	blacklist  storage.JWTRepository
	logger     *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件
func NewJWTAuth(jwtManager *jwt.Manager, blacklist storage.JWTRepository, logger *zap.Logger) *JWTAuth {
	return &JWTAuth{
		jwtManager: jwtManager,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// RequireAuth 要求JWT认证
func (ja *JWTAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			c.Abort()
			return
		}

		claims, err := ja.jwtManager.ValidateToken(token)
		if err != nil {
			ja.logger.Warn("invalid token",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			c.Abort()
			return
		}

		// 黑名单查询失败时放行：鉴权可用性优先于登出即时性
		if revoked, err := ja.blacklist.IsBlacklisted(claims.ID); err != nil {
			ja.logger.Error("blacklist lookup failed", zap.Error(err))
		} else if revoked {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("jti", claims.ID)
		c.Next()
	}
}

// OptionalAuth 可选的JWT认证
//
// 有合法token时填充上下文，没有也放行。
func (ja *JWTAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := ja.jwtManager.ValidateToken(token)
		if err == nil {
			if revoked, berr := ja.blacklist.IsBlacklisted(claims.ID); berr == nil && !revoked {
				c.Set("userID", claims.UserID)
				c.Set("email", claims.Email)
				c.Set("jti", claims.ID)
				c.Set("authenticated", true)
			}
		}

		c.Next()
	}
}

// extractToken 从请求中提取JWT token
func (ja *JWTAuth) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	token, err := c.Cookie("access_token")
	if err == nil && token != "" {
		return token
	}

	return ""
}
