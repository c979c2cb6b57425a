package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"NEXO_JWT_SECRET",
		"NEXO_SERVER_HOST",
		"NEXO_SERVER_PORT",
		"NEXO_APIKEY_MAX_PER_USER",
		"NEXO_APIKEY_DEFAULT_EXPIRY",
		"NEXO_CHORE_ROLL_INTERVAL",
		"NEXO_CORS_ALLOWED_ORIGINS",
		"NEXO_LOG_LEVEL",
		"NEXO_LOG_DEVELOPMENT",
		"NEXO_ADMIN_USER_IDS",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("加载默认配置成功", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("NEXO_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 20, cfg.APIKey.MaxPerUser)
		assert.Equal(t, time.Duration(0), cfg.APIKey.DefaultExpiry)
		assert.Equal(t, time.Hour, cfg.Chore.RollInterval)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, "nexo", cfg.JWT.Issuer)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
		assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry)
		assert.Empty(t, cfg.Admin.UserIDs)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		os.Setenv("NEXO_JWT_SECRET", "custom-jwt-secret-key-32-chars-long-minimum")
		os.Setenv("NEXO_SERVER_HOST", "127.0.0.1")
		os.Setenv("NEXO_SERVER_PORT", "9090")
		os.Setenv("NEXO_APIKEY_MAX_PER_USER", "5")
		os.Setenv("NEXO_APIKEY_DEFAULT_EXPIRY", "720h")
		os.Setenv("NEXO_CHORE_ROLL_INTERVAL", "30m")
		os.Setenv("NEXO_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
		os.Setenv("NEXO_LOG_LEVEL", "debug")
		os.Setenv("NEXO_LOG_DEVELOPMENT", "true")
		os.Setenv("NEXO_ADMIN_USER_IDS", "admin-1, admin-2")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证自定义值
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 5, cfg.APIKey.MaxPerUser)
		assert.Equal(t, 720*time.Hour, cfg.APIKey.DefaultExpiry)
		assert.Equal(t, 30*time.Minute, cfg.Chore.RollInterval)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
		assert.Equal(t, []string{"admin-1", "admin-2"}, cfg.Admin.UserIDs)
	})

	t.Run("JWT密钥太短失败", func(t *testing.T) {
		os.Setenv("NEXO_JWT_SECRET", "short-key") // 少于32字符

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "JWT secret must be at least 32 characters long")
	})

	t.Run("使用默认JWT密钥失败", func(t *testing.T) {
		os.Setenv("NEXO_JWT_SECRET", "change-me-in-production")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "JWT secret cannot be the default value")
	})
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{
		Admin: AdminConfig{UserIDs: []string{"admin-1", "admin-2"}},
	}

	assert.True(t, cfg.IsAdmin("admin-1"))
	assert.True(t, cfg.IsAdmin("admin-2"))
	assert.False(t, cfg.IsAdmin("user-1"))
	assert.False(t, cfg.IsAdmin(""))

	empty := &Config{}
	assert.False(t, empty.IsAdmin("admin-1"))
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "单个项目",
			input:    "item1",
			expected: []string{"item1"},
		},
		{
			name:     "多个项目",
			input:    "item1,item2,item3",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "带空格的项目",
			input:    " item1 , item2 , item3 ",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: []string{},
		},
		{
			name:     "只有逗号",
			input:    ",,,",
			expected: []string{},
		},
		{
			name:     "混合空值",
			input:    "item1,,item2,",
			expected: []string{"item1", "item2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}
