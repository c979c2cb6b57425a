package domain

import "time"

// DefaultEventColor 日历事件默认颜色
const DefaultEventColor = "#3b82f6"

// Event 日历事件
type Event struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description *string    `json:"description,omitempty" gorm:"type:text"`
	Location    *string    `json:"location,omitempty" gorm:"type:varchar(255)"`
	StartDate   time.Time  `json:"startDate" gorm:"index;not null"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsAllDay    bool       `json:"isAllDay" gorm:"default:false"`
	Color       string     `json:"color" gorm:"type:varchar(20);default:'#3b82f6'"`
	CreatedBy   string     `json:"createdBy" gorm:"type:varchar(36);not null"`
	OrgID       *string    `json:"orgId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// EventFilter 日历事件查询条件
type EventFilter struct {
	From  *time.Time // 起始时间窗口
	To    *time.Time // 截止时间窗口
	Limit int        // 返回条数上限
}
