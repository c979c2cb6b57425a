package service

import (
	"errors"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/security"
)

// ErrUnsafeContent 用户文本包含不允许的可执行标记
var ErrUnsafeContent = errors.New("content contains disallowed markup")

var contentFilter = security.NewContentFilter()

// checkContent 校验用户输入的自由文本，nil 指针跳过
func checkContent(fields ...*string) error {
	for _, f := range fields {
		if f == nil {
			continue
		}
		if !contentFilter.Check(*f) {
			return ErrUnsafeContent
		}
	}
	return nil
}

// canAccess 判断身份能否访问一行数据
//
// 组密钥只可见同组数据；个人密钥只可见自己创建且不属于任何组
// 的数据。两边互不相交，换密钥不会看到对方的数据。
func canAccess(identity *domain.Identity, orgID *string, createdBy string) bool {
	if identity.OrgID != nil {
		return orgID != nil && *orgID == *identity.OrgID
	}
	return orgID == nil && createdBy == identity.UserID
}
