package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"nexo/backend/internal/auth"
	jwtpkg "nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/config"
	"nexo/backend/internal/domain"
	"nexo/backend/internal/health"
	"nexo/backend/internal/middleware"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
	"nexo/backend/internal/storage"
	"nexo/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	APIKeyService   *service.APIKeyService
	ShoppingService *service.ShoppingService
	EventService    *service.EventService
	ExpenseService  *service.ExpenseService
	ChoreService    *service.ChoreService
	OrgService      *service.OrganizationService
	AdminService    *service.AdminService
	AuthService     *auth.Service
	JWTManager      *jwtpkg.Manager
	WebSocketHub    *websocket.Hub
	Store           storage.Store
	Metrics         *monitoring.Metrics
	HealthChecker   *health.HealthChecker
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
//
// 两条认证路径分开挂载：/v1 走 JWT 会话（严格按配置的 CORS 来源），
// /api 走 X-API-Key 凭证（宽松 CORS，面向第三方脚本和集成）。
func NewRouter(deps RouterDependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// 指标采集；panic 恢复在有指标时顺带计数
	var monitor *middleware.MonitoringMiddleware
	if deps.Metrics != nil {
		monitor = middleware.NewMonitoringMiddleware(deps.Metrics, logger)
		router.Use(monitor.PanicRecovery())
	} else {
		router.Use(middleware.RecoveryHandler(logger))
	}

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))

	// 业务计数由各处理器在成功路径上记录，这里只挂通用指标
	if monitor != nil {
		router.Use(monitor.HTTPMetrics())
		router.Use(monitor.SystemMetrics())
	}

	// 按来源IP限流
	if deps.Config.Rate.Enabled {
		limiter := middleware.NewRateLimiter(deps.Config.Rate.RPS, deps.Config.Rate.Burst)
		router.Use(limiter.Limit())
	}

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.Store, deps.Metrics, logger)
	apiKeyHandler := NewAPIKeyHandler(deps.APIKeyService, deps.Metrics)
	shoppingHandler := NewShoppingHandler(deps.ShoppingService, deps.Metrics, deps.WebSocketHub)
	eventHandler := NewEventHandler(deps.EventService, deps.Metrics, deps.WebSocketHub)
	expenseHandler := NewExpenseHandler(deps.ExpenseService, deps.Metrics, deps.WebSocketHub)
	choreHandler := NewChoreHandler(deps.ChoreService, deps.Metrics, deps.WebSocketHub)
	orgHandler := NewOrgHandler(deps.OrgService)
	adminHandler := NewAdminHandler(deps.AdminService, deps.Metrics)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Store, logger)
	adminAuth := middleware.NewAdminAuth(deps.Config, logger)
	apiKeyAuth := middleware.NewAPIKeyAuth(deps.APIKeyService, deps.Metrics, logger)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.HealthChecker != nil {
		probe := gin.WrapH(deps.HealthChecker.Handler())
		router.GET("/live", probe)
		router.GET("/ready", probe)
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API：JWT会话认证，按配置的来源做CORS
	v1 := router.Group("/v1")
	v1.Use(gincors.New(sessionCORS(deps.Config.CORS.AllowedOrigins)))
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
			authRoutes.POST("/logout", jwtAuth.RequireAuth(), authHandler.Logout)
			authRoutes.POST("/password", jwtAuth.RequireAuth(), authHandler.ChangePassword)
		}

		// ========== API Key Routes ==========
		keyRoutes := v1.Group("/keys")
		keyRoutes.Use(jwtAuth.RequireAuth())
		{
			keyRoutes.POST("/generate", apiKeyHandler.GenerateKey)
			keyRoutes.GET("", apiKeyHandler.ListKeys)
			keyRoutes.DELETE("/:id", apiKeyHandler.RevokeKey)
			keyRoutes.DELETE("/:id/hard", apiKeyHandler.HardDeleteKey)
		}

		// ========== Organization Routes ==========
		orgRoutes := v1.Group("/orgs")
		orgRoutes.Use(jwtAuth.RequireAuth())
		{
			orgRoutes.POST("", orgHandler.CreateOrg)
			orgRoutes.GET("", orgHandler.ListOrgs)
			orgRoutes.GET("/:id", orgHandler.GetOrg)
			orgRoutes.DELETE("/:id", orgHandler.DeleteOrg)
			orgRoutes.GET("/:id/members", orgHandler.ListMembers)
			orgRoutes.POST("/:id/members", orgHandler.AddMember)
			orgRoutes.DELETE("/:id/members/:userId", orgHandler.RemoveMember)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}

		// ========== Admin Routes ==========
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(jwtAuth.RequireAuth(), adminAuth.RequireAdmin())
		{
			adminRoutes.GET("/users", adminHandler.ListUsers)
			adminRoutes.DELETE("/users/:id", adminHandler.DeleteUser)
			adminRoutes.GET("/keys", adminHandler.ListAllKeys)
			adminRoutes.DELETE("/keys/:id", adminHandler.RevokeKey)
			adminRoutes.GET("/stats", adminHandler.Statistics)
		}
	}

	// Credential API：X-API-Key 认证，宽松CORS（面向脚本和第三方集成）
	api := router.Group("/api")
	api.Use(gincors.New(credentialCORS()))
	api.Use(apiKeyAuth.RequireAPIKey())
	{
		// ========== Shopping Routes ==========
		shopping := api.Group("/shopping")
		{
			shopping.GET("", apiKeyAuth.RequireScope(domain.ScopeShoppingRead), shoppingHandler.ListItems)
			shopping.POST("", apiKeyAuth.RequireScope(domain.ScopeShoppingWrite), shoppingHandler.CreateItem)
			shopping.DELETE("/checked", apiKeyAuth.RequireScope(domain.ScopeShoppingWrite), shoppingHandler.ClearChecked)
			shopping.GET("/:id", apiKeyAuth.RequireScope(domain.ScopeShoppingRead), shoppingHandler.GetItem)
			shopping.PATCH("/:id", apiKeyAuth.RequireScope(domain.ScopeShoppingWrite), shoppingHandler.UpdateItem)
			shopping.DELETE("/:id", apiKeyAuth.RequireScope(domain.ScopeShoppingWrite), shoppingHandler.DeleteItem)
			shopping.POST("/:id/toggle", apiKeyAuth.RequireScope(domain.ScopeShoppingWrite), shoppingHandler.ToggleItem)
		}

		// ========== Event Routes ==========
		events := api.Group("/events")
		{
			events.GET("", apiKeyAuth.RequireScope(domain.ScopeEventsRead), eventHandler.ListEvents)
			events.GET("/upcoming", apiKeyAuth.RequireScope(domain.ScopeEventsRead), eventHandler.UpcomingEvents)
			events.POST("", apiKeyAuth.RequireScope(domain.ScopeEventsWrite), eventHandler.CreateEvent)
			events.GET("/:id", apiKeyAuth.RequireScope(domain.ScopeEventsRead), eventHandler.GetEvent)
			events.PATCH("/:id", apiKeyAuth.RequireScope(domain.ScopeEventsWrite), eventHandler.UpdateEvent)
			events.DELETE("/:id", apiKeyAuth.RequireScope(domain.ScopeEventsWrite), eventHandler.DeleteEvent)
		}

		// ========== Expense Routes ==========
		expenses := api.Group("/expenses")
		{
			expenses.GET("", apiKeyAuth.RequireScope(domain.ScopeExpensesRead), expenseHandler.ListExpenses)
			expenses.GET("/balances", apiKeyAuth.RequireScope(domain.ScopeExpensesRead), expenseHandler.Balances)
			expenses.POST("", apiKeyAuth.RequireScope(domain.ScopeExpensesWrite), expenseHandler.CreateExpense)
			expenses.GET("/:id", apiKeyAuth.RequireScope(domain.ScopeExpensesRead), expenseHandler.GetExpense)
			expenses.PATCH("/:id", apiKeyAuth.RequireScope(domain.ScopeExpensesWrite), expenseHandler.UpdateExpense)
			expenses.DELETE("/:id", apiKeyAuth.RequireScope(domain.ScopeExpensesWrite), expenseHandler.DeleteExpense)
			expenses.POST("/:id/splits/:splitId/settle", apiKeyAuth.RequireScope(domain.ScopeExpensesWrite), expenseHandler.SettleSplit)
		}

		// ========== Chore Routes ==========
		chores := api.Group("/chores")
		{
			chores.GET("", apiKeyAuth.RequireScope(domain.ScopeChoresRead), choreHandler.ListChores)
			chores.POST("", apiKeyAuth.RequireScope(domain.ScopeChoresWrite), choreHandler.CreateChore)
			chores.GET("/:id", apiKeyAuth.RequireScope(domain.ScopeChoresRead), choreHandler.GetChore)
			chores.PATCH("/:id", apiKeyAuth.RequireScope(domain.ScopeChoresWrite), choreHandler.UpdateChore)
			chores.DELETE("/:id", apiKeyAuth.RequireScope(domain.ScopeChoresWrite), choreHandler.DeleteChore)
			chores.POST("/:id/complete", apiKeyAuth.RequireScope(domain.ScopeChoresWrite), choreHandler.CompleteChore)
			chores.POST("/:id/reopen", apiKeyAuth.RequireScope(domain.ScopeChoresWrite), choreHandler.ReopenChore)
		}

		// ========== Key Bootstrap Routes ==========
		// 密钥管理不设独立权限：持有有效密钥即可管理自己名下的密钥
		keys := api.Group("/keys")
		{
			keys.GET("", apiKeyHandler.ListKeysWithKey)
			keys.POST("", apiKeyHandler.CreateKeyWithKey)
			keys.DELETE("/:id", apiKeyHandler.RevokeKeyWithKey)
		}
	}

	return router
}

// sessionCORS 会话路径的CORS配置：严格按配置的来源
func sessionCORS(allowedOrigins []string) gincors.Config {
	cfg := gincors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 允许所有来源时不能同时携带凭证
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			cfg.AllowCredentials = false
			break
		}
	}
	return cfg
}

// credentialCORS 凭证路径的CORS配置：任意来源，放行X-API-Key头
//
// 凭证在请求头里自带，不依赖浏览器的同源保护。
func credentialCORS() gincors.Config {
	return gincors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}
}
