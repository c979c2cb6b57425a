package main

import (
	"fmt"
	"os"

	"nexo/backend/internal/auth"
	jwtpkg "nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/config"
	"nexo/backend/internal/service"
	"nexo/backend/internal/storage"
	"nexo/backend/internal/storage/hybrid"
	"nexo/backend/internal/storage/memory"

	"go.uber.org/zap"
)

// 引导工具：创建管理员账号并签发一把通配符密钥。
//
// 签发走信任路径，密钥明文只打印这一次。账号建好后把打印出的
// 用户ID加入 NEXO_ADMIN_USER_IDS 环境变量即可获得管理端权限。
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <email> <password> [name]")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	name := "admin"
	if len(os.Args) >= 4 {
		name = os.Args[3]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = hybrid.NewStoreWithType(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			fmt.Printf("failed to connect database: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println("WARNING: no database configured, using in-memory storage (data will not persist)")
		store = memory.NewStore()
	}

	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, jwtManager)

	// 账号已存在时直接复用
	user, err := store.GetUserByEmail(email)
	if err != nil {
		resp, err := authService.Register(auth.RegisterInput{
			Email:    email,
			Password: password,
			Name:     name,
		})
		if err != nil {
			fmt.Printf("failed to create user: %v\n", err)
			os.Exit(1)
		}
		user = resp.User
		fmt.Printf("User created: %s\n", user.Email)
	} else {
		fmt.Printf("User already exists: %s\n", user.Email)
	}

	apiKeyService := service.NewAPIKeyService(store, zap.NewNop(), cfg.APIKey.MaxPerUser, 0)
	result, err := apiKeyService.CreateTrustedKey(service.CreateAPIKeyInput{
		UserID: user.ID,
		Name:   "bootstrap admin key",
		// Scopes 留空，信任路径默认签发通配符权限
	})
	if err != nil {
		fmt.Printf("failed to issue api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("User ID:    %s\n", user.ID)
	fmt.Printf("Key prefix: %s\n", result.Key.KeyPrefix)
	fmt.Printf("API key:    %s\n", result.Plaintext)
	fmt.Println()
	fmt.Println("Store this key securely. It will not be shown again.")
	fmt.Printf("To grant admin endpoints, add the user ID to NEXO_ADMIN_USER_IDS.\n")
}
