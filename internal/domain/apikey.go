package domain

import (
	"encoding/json"
	"time"
)

// APIKey API密钥实体
//
// 密钥明文只在签发时返回一次，之后仅保留SHA-256哈希和用于展示的前缀。
type APIKey struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	KeyHash    string     `json:"-" gorm:"column:key_hash;type:varchar(64);uniqueIndex;not null"` // 明文的SHA-256十六进制摘要
	KeyPrefix  string     `json:"keyPrefix" gorm:"type:varchar(20);not null"`                     // 明文前12个字符（含nxk_标记），仅用于列表展示
	UserID     string     `json:"userId" gorm:"type:varchar(36);index;not null"`                  // 所属用户
	OrgID      *string    `json:"orgId,omitempty" gorm:"type:varchar(36);index"`                  // 可选的家庭组上下文
	Name       string     `json:"name" gorm:"type:varchar(100);not null"`                         // 密钥名称/描述
	Scopes     string     `json:"-" gorm:"type:text"`                                             // 权限范围（JSON数组）
	IsActive   bool       `json:"isActive" gorm:"default:true"`                                   // 撤销后永久为false
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`                                           // 最后一次成功验证时间
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`                                            // 过期时间（可选，nil表示永不过期）
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// ScopeList 解析存储的权限范围JSON
//
// 解析失败时回退到通配符（与历史数据默认值保持一致）
func (k *APIKey) ScopeList() []string {
	if k.Scopes == "" {
		return []string{ScopeWildcard}
	}
	var scopes []string
	if err := json.Unmarshal([]byte(k.Scopes), &scopes); err != nil {
		return []string{ScopeWildcard}
	}
	return scopes
}

// SetScopeList 序列化权限范围为JSON存储
func (k *APIKey) SetScopeList(scopes []string) {
	data, err := json.Marshal(scopes)
	if err != nil {
		k.Scopes = `["*"]`
		return
	}
	k.Scopes = string(data)
}

// IsExpired 判断密钥在指定时刻是否已过期
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// Identity 已验证的API密钥身份
//
// 验证成功后随请求传递，后续处理使用其中的用户/家庭组上下文过滤数据。
type Identity struct {
	KeyID  uint     `json:"keyId"`
	UserID string   `json:"userId"`
	OrgID  *string  `json:"orgId,omitempty"`
	Scopes []string `json:"scopes"`
}

// HasScope 判断该身份是否具备所需权限
func (id *Identity) HasScope(required string) bool {
	return HasScope(id.Scopes, required)
}
