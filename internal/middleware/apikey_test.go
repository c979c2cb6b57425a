package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/service"
	"nexo/backend/internal/storage/memory"
)

func newTestRouter(t *testing.T) (*gin.Engine, *APIKeyAuth, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	svc := service.NewAPIKeyService(store, zap.NewNop(), 20, 0)
	result, err := svc.CreateAPIKey(service.CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "test key",
		Scopes: []string{domain.ScopeShoppingRead},
	})
	require.NoError(t, err)

	auth := NewAPIKeyAuth(svc, nil, zap.NewNop())
	router := gin.New()
	return router, auth, result.Plaintext
}

func doRequest(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAPIKey(t *testing.T) {
	router, auth, plaintext := newTestRouter(t)
	router.GET("/protected", auth.RequireAPIKey(), func(c *gin.Context) {
		identity := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "userId": identity.UserID})
	})

	t.Run("缺少密钥", func(t *testing.T) {
		w := doRequest(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("有效密钥", func(t *testing.T) {
		w := doRequest(router, plaintext)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-1")
	})

	t.Run("不同失败原因返回同一响应", func(t *testing.T) {
		// Malformed, unknown, and truncated keys all map to one message
		bodies := map[string]struct{}{}
		for _, key := range []string{"garbage", "nxk_unknownunknownunknown", plaintext[:20]} {
			w := doRequest(router, key)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			bodies[resp.Error] = struct{}{}
		}
		assert.Len(t, bodies, 1)
	})
}

func TestRequireScope(t *testing.T) {
	router, auth, plaintext := newTestRouter(t)
	router.GET("/protected", auth.RequireAPIKey(), auth.RequireScope(domain.ScopeShoppingRead), okHandler)
	router.GET("/forbidden", auth.RequireAPIKey(), auth.RequireScope(domain.ScopeChoresWrite), okHandler)

	t.Run("权限满足", func(t *testing.T) {
		w := doRequest(router, plaintext)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("权限不足返回403并点名缺失权限", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/forbidden", nil)
		req.Header.Set(APIKeyHeader, plaintext)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Missing required scope: chores:write")
	})

	t.Run("未认证直接401", func(t *testing.T) {
		// RequireScope without a prior RequireAPIKey context entry
		bare := gin.New()
		bare.GET("/x", auth.RequireScope(domain.ScopeShoppingRead), okHandler)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// promauto 注册在默认 registry 上，整个测试二进制只能创建一次
var (
	metricsOnce sync.Once
	testMetrics *monitoring.Metrics
)

func sharedMetrics() *monitoring.Metrics {
	metricsOnce.Do(func() {
		testMetrics = monitoring.NewMetrics()
	})
	return testMetrics
}

func TestAPIKeyMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := sharedMetrics()

	store := memory.NewStore()
	svc := service.NewAPIKeyService(store, zap.NewNop(), 20, 0)
	result, err := svc.CreateAPIKey(service.CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "metered key",
		Scopes: []string{domain.ScopeShoppingRead},
	})
	require.NoError(t, err)

	auth := NewAPIKeyAuth(svc, metrics, zap.NewNop())
	router := gin.New()
	router.GET("/protected", auth.RequireAPIKey(), auth.RequireScope(domain.ScopeShoppingRead), okHandler)
	router.GET("/writes", auth.RequireAPIKey(), auth.RequireScope(domain.ScopeShoppingWrite), okHandler)

	validations := func(label string) float64 {
		return testutil.ToFloat64(metrics.APIKeyValidations.WithLabelValues(label))
	}

	t.Run("验证结果分类计数", func(t *testing.T) {
		cases := []struct {
			key   string
			label string
		}{
			{result.Plaintext, "success"},
			{"garbage", "invalid_format"},
			{"nxk_" + strings.Repeat("A", 43), "not_found"},
		}
		for _, tc := range cases {
			before := validations(tc.label)
			doRequest(router, tc.key)
			assert.Equal(t, before+1, validations(tc.label), tc.label)
		}
	})

	t.Run("撤销后的密钥计入disabled", func(t *testing.T) {
		require.NoError(t, svc.RevokeAPIKey("user-1", result.Key.ID))
		before := validations("disabled")
		doRequest(router, result.Plaintext)
		assert.Equal(t, before+1, validations("disabled"))
	})

	t.Run("权限不足计入对应scope", func(t *testing.T) {
		fresh, err := svc.CreateAPIKey(service.CreateAPIKeyInput{
			UserID: "user-1",
			Name:   "reader",
			Scopes: []string{domain.ScopeShoppingRead},
		})
		require.NoError(t, err)

		denials := testutil.ToFloat64(metrics.ScopeDenials.WithLabelValues(domain.ScopeShoppingWrite))
		req := httptest.NewRequest(http.MethodGet, "/writes", nil)
		req.Header.Set(APIKeyHeader, fresh.Plaintext)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, denials+1,
			testutil.ToFloat64(metrics.ScopeDenials.WithLabelValues(domain.ScopeShoppingWrite)))
	})
}
