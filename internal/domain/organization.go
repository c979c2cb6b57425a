package domain

import "time"

// OrgRole 家庭组成员角色
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// Organization 家庭组实体
//
// 成员共享家庭组下的购物清单、日历、开支和家务数据。
type Organization struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string    `json:"slug,omitempty" gorm:"type:varchar(100);index"`
	CreatedBy string    `json:"createdBy" gorm:"type:varchar(36);not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrganizationMember 家庭组成员关系
type OrganizationMember struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	OrgID    string    `json:"orgId" gorm:"type:varchar(36);index;not null"`
	UserID   string    `json:"userId" gorm:"type:varchar(36);index;not null"`
	Role     OrgRole   `json:"role" gorm:"type:varchar(20);default:'member'"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IsAdmin 判断成员是否为家庭组管理员
func (m *OrganizationMember) IsAdmin() bool {
	return m.Role == OrgRoleAdmin
}
