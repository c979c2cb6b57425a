package domain

import "time"

// ChoreFrequency 家务重复频率
type ChoreFrequency string

const (
	FrequencyOnce    ChoreFrequency = "once"
	FrequencyDaily   ChoreFrequency = "daily"
	FrequencyWeekly  ChoreFrequency = "weekly"
	FrequencyMonthly ChoreFrequency = "monthly"
)

// ValidFrequency 判断频率是否合法
func ValidFrequency(f ChoreFrequency) bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ChoreStatus 家务状态
type ChoreStatus string

const (
	ChoreStatusPending   ChoreStatus = "pending"
	ChoreStatusCompleted ChoreStatus = "completed"
)

// Chore 家务任务
type Chore struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title" gorm:"type:varchar(255);not null"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	Frequency   *ChoreFrequency `json:"frequency,omitempty" gorm:"type:varchar(20)"`
	DueDate     *time.Time      `json:"dueDate,omitempty" gorm:"index"`
	Status      ChoreStatus     `json:"status" gorm:"type:varchar(20);index;default:'pending'"`
	AssignedTo  *string         `json:"assignedTo,omitempty" gorm:"type:varchar(36)"`
	CompletedBy *string         `json:"completedBy,omitempty" gorm:"type:varchar(36)"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	CreatedBy   string          `json:"createdBy" gorm:"type:varchar(36);not null"`
	OrgID       *string         `json:"orgId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsRecurring 判断是否为周期性家务
func (c *Chore) IsRecurring() bool {
	return c.Frequency != nil && *c.Frequency != FrequencyOnce
}

// NextDueDate 计算周期性家务的下一次到期时间
//
// 非周期性家务或无到期时间时返回nil。
func (c *Chore) NextDueDate() *time.Time {
	if !c.IsRecurring() || c.DueDate == nil {
		return nil
	}

	var next time.Time
	switch *c.Frequency {
	case FrequencyDaily:
		next = c.DueDate.AddDate(0, 0, 1)
	case FrequencyWeekly:
		next = c.DueDate.AddDate(0, 0, 7)
	case FrequencyMonthly:
		next = c.DueDate.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}
