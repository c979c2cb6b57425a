package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexo/backend/internal/auth"
	authjwt "nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/storage"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	jwtManager  *authjwt.Manager
	blacklist   storage.JWTRepository
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, jwtManager *authjwt.Manager, blacklist storage.JWTRepository, metrics *monitoring.Metrics, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		blacklist:   blacklist,
		metrics:     metrics,
		log:         logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Register godoc
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 201 {object} Response{data=auth.AuthResponse}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	resp, err := h.authService.Register(auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, err.Error())
		case errors.Is(err, auth.ErrInvalidEmail):
			BadRequest(c, err.Error())
		default:
			// 密码强度等校验错误带具体原因
			BadRequest(c, err.Error())
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserRegistered()
	}
	h.log.Info("user registered", zap.String("user_id", resp.User.ID))
	Created(c, resp)
}

// Login godoc
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭证"
// @Success 200 {object} Response{data=auth.AuthResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	resp, err := h.authService.Login(auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// 凭证错误和账号停用统一返回401，不泄露账号状态
		h.log.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("reason", err.Error()),
			zap.String("ip", c.ClientIP()))
		Unauthorized(c, "invalid email or password")
		return
	}

	Success(c, resp)
}

// Refresh godoc
// @Summary 刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "刷新令牌"
// @Success 200 {object} Response{data=auth.AuthResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	resp, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "invalid or expired token")
		return
	}

	Success(c, resp)
}

// Me godoc
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.User}
// @Failure 401 {object} Response
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	user, err := h.authService.GetUserByID(userID.(string))
	if err != nil {
		NotFound(c, "user not found")
		return
	}

	Success(c, user)
}

// Logout godoc
// @Summary 用户登出
// @Description 把当前令牌加入黑名单，在剩余有效期内拒绝
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exists := c.Get("jti")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	// 黑名单条目只需活过令牌本身
	if err := h.blacklist.AddToBlacklist(jti.(string), h.jwtManager.AccessExpiry()); err != nil {
		h.log.Error("failed to blacklist token", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, gin.H{"loggedOut": true})
}

// ChangePassword godoc
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body changePasswordRequest true "新旧密码"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.authService.ChangePassword(userID.(string), req.OldPassword, req.NewPassword); err != nil {
		BadRequest(c, err.Error())
		return
	}

	Success(c, gin.H{"changed": true})
}
