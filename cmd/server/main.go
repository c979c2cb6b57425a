package main

// @title Nexo Backend API
// @version 0.1.0
// @description Nexo 家庭协作后端 API 文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 使用格式：Bearer {token}
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description 集成端点的 API Key 凭证

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nexo/backend/internal/auth"
	jwtpkg "nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/config"
	"nexo/backend/internal/health"
	"nexo/backend/internal/logger"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/pool"
	"nexo/backend/internal/service"
	"nexo/backend/internal/storage"
	"nexo/backend/internal/storage/hybrid"
	"nexo/backend/internal/storage/memory"
	httptransport "nexo/backend/internal/transport/http"
	"nexo/backend/internal/websocket"
)

// main 启动 HTTP API 与 WebSocket 推送的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting nexo server",
		zap.String("version", "0.1.0"),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store

	// 根据配置选择存储类型
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = initializeDatabaseStorage(cfg, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		// 内存存储（开发环境）
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化认证
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, jwtManager)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	// 初始化服务层
	apiKeyService := service.NewAPIKeyService(store, log, cfg.APIKey.MaxPerUser, cfg.APIKey.DefaultExpiry)

	// 异步更新密钥最后使用时间，避免阻塞验证路径
	touchPool := pool.NewWorkerPool(4, 256, log)
	apiKeyService.SetTouchPool(touchPool)
	shoppingService := service.NewShoppingService(store)
	eventService := service.NewEventService(store)
	expenseService := service.NewExpenseService(store)
	choreService := service.NewChoreService(store, log)
	choreService.SetMetrics(metrics)
	orgService := service.NewOrganizationService(store)
	adminService := service.NewAdminService(store, log)

	// 创建 WebSocket Hub
	// 使用 CORS 配置的允许来源列表、JWT管理器和成员关系存储
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, jwtManager, store, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		APIKeyService:   apiKeyService,
		ShoppingService: shoppingService,
		EventService:    eventService,
		ExpenseService:  expenseService,
		ChoreService:    choreService,
		OrgService:      orgService,
		AdminService:    adminService,
		AuthService:     authService,
		JWTManager:      jwtManager,
		WebSocketHub:    wsHub,
		Store:           store,
		Metrics:         metrics,
		HealthChecker:   healthChecker,
		Logger:          log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	touchPool.Start(groupCtx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 数据库连接数采样 goroutine（内存存储没有连接池，跳过）
	if db, ok := store.(interface{ OpenConnections() int }); ok {
		group.Go(func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					metrics.UpdateDatabaseConnections(db.OpenConnections())
				}
			}
		})
	}

	// 周期性家务滚动 goroutine
	group.Go(func() error {
		log.Info("starting chore roll task", zap.Duration("interval", cfg.Chore.RollInterval))
		choreService.StartRollLoop(cfg.Chore.RollInterval, groupCtx.Done())
		log.Info("chore roll task stopped")
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		touchPool.Stop()
		expenseService.Close()

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeDatabaseStorage 初始化数据库存储
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)

	// 使用混合存储（SQL + Redis）
	store, err := hybrid.NewStoreWithType(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid store: %w", err)
	}

	log.Info("database storage initialized successfully",
		zap.String("database_type", cfg.Database.Type),
	)

	return store, nil
}
