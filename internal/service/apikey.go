package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/pool"
	"nexo/backend/internal/storage"
)

// APIKeyMarker 密钥明文的固定前缀标记
//
// 让密钥在日志和请求头里一眼可辨，同时支持在查库之前快速拒绝
// 明显不合法的输入。
const APIKeyMarker = "nxk_"

// apiKeyPrefixLen 展示用前缀长度（含标记），足以在列表里区分，
// 不足以还原密钥本身。
const apiKeyPrefixLen = 12

// maxKeyNameRunes 密钥名称的长度上限，超长按字符截断，
// 不按字节截断，避免把多字节字符拦腰切断。
const maxKeyNameRunes = 100

var (
	ErrKeyInvalidFormat  = errors.New("api key has invalid format")
	ErrKeyNotFound       = errors.New("api key not found")
	ErrKeyDisabled       = errors.New("api key is disabled")
	ErrKeyExpired        = errors.New("api key is expired")
	ErrKeyLimitReached   = errors.New("api key limit reached")
	ErrScopeNotGrantable = errors.New("scope not grantable")
	ErrKeyNameRequired   = errors.New("api key name is required")
	// ErrKeyConflict 哈希唯一性冲突（概率极低），调用方应重试签发。
	ErrKeyConflict = errors.New("api key generation conflict, please retry")
)

// APIKeyService API密钥业务逻辑服务
//
// 负责签发、验证、撤销密钥。明文只在签发响应中出现一次，
// 存储层只保留SHA-256摘要和展示前缀。
type APIKeyService struct {
	repo       storage.APIKeyRepository
	logger     *zap.Logger
	touchPool  *pool.WorkerPool
	maxPerUser int
	defaultTTL time.Duration
}

// NewAPIKeyService 创建API密钥服务
//
// 参数:
//   - repo: 密钥存储
//   - logger: 日志记录器
//   - maxPerUser: 单个用户最多持有的活跃密钥数量（<=0 表示不限制）
//   - defaultTTL: 默认有效期（0 表示永不过期）
func NewAPIKeyService(repo storage.APIKeyRepository, logger *zap.Logger, maxPerUser int, defaultTTL time.Duration) *APIKeyService {
	return &APIKeyService{
		repo:       repo,
		logger:     logger,
		maxPerUser: maxPerUser,
		defaultTTL: defaultTTL,
	}
}

// SetTouchPool 设置用于异步更新最后使用时间的协程池
//
// 未设置时退化为同步更新（同样尽力而为，失败不影响验证结果）。
func (s *APIKeyService) SetTouchPool(p *pool.WorkerPool) {
	s.touchPool = p
}

// CreateAPIKeyInput 签发密钥的输入参数
type CreateAPIKeyInput struct {
	UserID    string
	OrgID     *string
	Name      string
	Scopes    []string
	ExpiresIn *time.Duration // 可选，nil 时使用服务默认值
}

// CreateAPIKeyResult 签发结果
//
// Plaintext 是密钥明文，只在这里返回一次，之后任何接口都无法再取回。
type CreateAPIKeyResult struct {
	Key       *domain.APIKey
	Plaintext string
}

// CreateAPIKey 签发新的API密钥
//
// 对外签发路径：拒绝未知权限和通配符，必须显式选择最小权限集。
func (s *APIKeyService) CreateAPIKey(input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if len(input.Scopes) == 0 {
		return nil, ErrScopeNotGrantable
	}
	for _, scope := range input.Scopes {
		if !domain.GrantableScope(scope) {
			return nil, fmt.Errorf("%w: %s", ErrScopeNotGrantable, scope)
		}
	}
	return s.createKey(input)
}

// createKey 公共签发流程：名称校验、数量上限、随机生成、落库
func (s *APIKeyService) createKey(input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrKeyNameRequired
	}
	if runes := []rune(name); len(runes) > maxKeyNameRunes {
		name = string(runes[:maxKeyNameRunes])
	}

	if s.maxPerUser > 0 {
		existing, err := s.repo.ListAPIKeysByUserID(input.UserID)
		if err != nil {
			return nil, err
		}
		active := 0
		for _, k := range existing {
			if k.IsActive {
				active++
			}
		}
		if active >= s.maxPerUser {
			return nil, ErrKeyLimitReached
		}
	}

	plaintext, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	ttl := s.defaultTTL
	if input.ExpiresIn != nil {
		ttl = *input.ExpiresIn
	}
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	apiKey := &domain.APIKey{
		KeyHash:   HashAPIKey(plaintext),
		KeyPrefix: plaintext[:apiKeyPrefixLen],
		UserID:    input.UserID,
		OrgID:     input.OrgID,
		Name:      name,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	apiKey.SetScopeList(input.Scopes)

	if err := s.repo.SaveAPIKey(apiKey); err != nil {
		if errors.Is(err, storage.ErrDuplicateKeyHash) {
			// 256位随机数撞哈希几乎不可能，真撞上了让调用方重试
			return nil, ErrKeyConflict
		}
		return nil, err
	}

	return &CreateAPIKeyResult{Key: apiKey, Plaintext: plaintext}, nil
}

// CreateTrustedKey 信任路径签发（CLI引导等内部调用）
//
// 与 CreateAPIKey 的区别：未指定权限时默认通配符，且允许显式通配符。
// 绝不能从对外端点调用。
func (s *APIKeyService) CreateTrustedKey(input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if len(input.Scopes) == 0 {
		input.Scopes = []string{domain.ScopeWildcard}
	}
	for _, scope := range input.Scopes {
		if !domain.ValidScope(scope) {
			return nil, fmt.Errorf("%w: %s", ErrScopeNotGrantable, scope)
		}
	}
	return s.createKey(input)
}

// ValidateAPIKey 验证密钥明文并返回关联身份
//
// 内部区分四类失败（格式错误/不存在/已停用/已过期）供日志使用，
// HTTP层统一映射为401，避免向调用方泄露具体原因。
func (s *APIKeyService) ValidateAPIKey(raw string) (*domain.Identity, error) {
	// 格式快速失败：不带标记的输入直接拒绝，不查库
	if !strings.HasPrefix(raw, APIKeyMarker) {
		return nil, ErrKeyInvalidFormat
	}

	apiKey, err := s.repo.GetAPIKeyByHash(HashAPIKey(raw))
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	// 先查激活状态再查过期时间，保证两种失败稳定可区分
	if !apiKey.IsActive {
		return nil, ErrKeyDisabled
	}
	if apiKey.IsExpired(time.Now().UTC()) {
		return nil, ErrKeyExpired
	}

	s.touchLastUsed(apiKey.ID)

	return &domain.Identity{
		KeyID:  apiKey.ID,
		UserID: apiKey.UserID,
		OrgID:  apiKey.OrgID,
		Scopes: apiKey.ScopeList(),
	}, nil
}

// touchLastUsed 尽力而为地更新最后使用时间
//
// 记录失败只打日志，绝不阻塞验证路径。
func (s *APIKeyService) touchLastUsed(id uint) {
	now := time.Now().UTC()
	update := func() {
		if err := s.repo.TouchAPIKey(id, now); err != nil {
			s.logger.Warn("failed to update api key last used time",
				zap.Uint("key_id", id),
				zap.Error(err))
		}
	}

	if s.touchPool != nil {
		if !s.touchPool.TrySubmit(update) {
			s.logger.Warn("touch queue full, skipping last used update",
				zap.Uint("key_id", id))
		}
		return
	}
	update()
}

// ListAPIKeys 列出用户的全部密钥元数据
//
// 返回值不包含哈希，更不包含明文。
func (s *APIKeyService) ListAPIKeys(userID string) ([]*domain.APIKey, error) {
	return s.repo.ListAPIKeysByUserID(userID)
}

// RevokeAPIKey 撤销密钥（置为永久停用）
//
// 只有属主能撤销。密钥不存在和不属于该用户返回同一个错误，
// 不向调用方暴露他人密钥的存在性。重复撤销视为成功（幂等）。
func (s *APIKeyService) RevokeAPIKey(userID string, id uint) error {
	affected, err := s.repo.DeactivateAPIKey(id, userID)
	if err != nil {
		return err
	}
	if !affected {
		return ErrKeyNotFound
	}
	return nil
}

// DeleteAPIKey 永久删除密钥记录
//
// 与撤销相同的属主校验规则。
func (s *APIKeyService) DeleteAPIKey(userID string, id uint) error {
	affected, err := s.repo.DeleteAPIKey(id, userID)
	if err != nil {
		return err
	}
	if !affected {
		return ErrKeyNotFound
	}
	return nil
}

// HashAPIKey 计算密钥明文的SHA-256十六进制摘要
//
// 签发和验证共用同一函数，保证查找键一致。
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// generateAPIKey 生成带标记的随机密钥明文
//
// 32字节随机数（256位熵）经base64url编码后拼上固定标记。
func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return APIKeyMarker + base64.RawURLEncoding.EncodeToString(bytes), nil
}
