package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/service"
	"nexo/backend/internal/storage/memory"
)

// newKeyTestRouter 搭建带固定登录身份的密钥管理路由
func newKeyTestRouter(userID string) (*gin.Engine, *service.APIKeyService) {
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	svc := service.NewAPIKeyService(store, zap.NewNop(), 20, 0)
	handler := NewAPIKeyHandler(svc, nil)

	router := gin.New()
	authed := router.Group("/v1/keys", func(c *gin.Context) {
		c.Set("userID", userID)
	})
	authed.POST("/generate", handler.GenerateKey)
	authed.GET("", handler.ListKeys)
	authed.DELETE("/:id", handler.RevokeKey)
	return router, svc
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateKeyEndpoint(t *testing.T) {
	router, _ := newKeyTestRouter("user-1")

	w := postJSON(router, "/v1/keys/generate", `{"name":"ci key","scopes":["shopping:read"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Warning string `json:"warning"`
		Data    struct {
			ID        uint     `json:"id"`
			Key       string   `json:"key"`
			KeyPrefix string   `json:"keyPrefix"`
			Scopes    []string `json:"scopes"`
			IsActive  bool     `json:"isActive"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, PlaintextWarning, resp.Warning)
	assert.True(t, strings.HasPrefix(resp.Data.Key, service.APIKeyMarker))
	assert.Len(t, resp.Data.Key, 47)
	assert.Equal(t, resp.Data.Key[:12], resp.Data.KeyPrefix)
	assert.Equal(t, []string{"shopping:read"}, resp.Data.Scopes)
	assert.True(t, resp.Data.IsActive)

	t.Run("列表不回明文", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		assert.NotContains(t, w.Body.String(), resp.Data.Key)
		assert.Contains(t, w.Body.String(), resp.Data.KeyPrefix)
		assert.Contains(t, w.Body.String(), `"count":1`)
	})

	t.Run("非法输入", func(t *testing.T) {
		for name, body := range map[string]string{
			"缺少名称":   `{"scopes":["shopping:read"]}`,
			"缺少权限":   `{"name":"x"}`,
			"通配符权限":  `{"name":"x","scopes":["*"]}`,
			"未知权限":   `{"name":"x","scopes":["documents:read"]}`,
			"非正数有效期": `{"name":"x","scopes":["shopping:read"],"expires_in_days":-1}`,
		} {
			w := postJSON(router, "/v1/keys/generate", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, name)
		}
	})
}

func TestRevokeKeyEndpoint(t *testing.T) {
	router, svc := newKeyTestRouter("user-1")

	result, err := svc.CreateAPIKey(service.CreateAPIKeyInput{
		UserID: "user-1",
		Name:   "to revoke",
		Scopes: []string{domain.ScopeEventsRead},
	})
	require.NoError(t, err)

	otherKey, err := svc.CreateAPIKey(service.CreateAPIKeyInput{
		UserID: "user-2",
		Name:   "someone else",
		Scopes: []string{domain.ScopeEventsRead},
	})
	require.NoError(t, err)

	revoke := func(id uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/keys/%d", id), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("属主撤销", func(t *testing.T) {
		w := revoke(result.Key.ID)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"revoked":true`)
	})

	t.Run("重复撤销幂等", func(t *testing.T) {
		w := revoke(result.Key.ID)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("他人密钥与不存在同样404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, revoke(otherKey.Key.ID).Code)
		assert.Equal(t, http.StatusNotFound, revoke(99999).Code)
	})

	t.Run("非法ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/keys/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
