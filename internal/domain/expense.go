package domain

import "time"

// Expense 开支记录
type Expense struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Amount      float64        `json:"amount" gorm:"not null"`
	Description string         `json:"description" gorm:"type:varchar(255);not null"`
	Category    *string        `json:"category,omitempty" gorm:"type:varchar(100)"`
	Date        time.Time      `json:"date" gorm:"index;not null"`
	PayerID     string         `json:"payerId" gorm:"type:varchar(36);not null"`
	OrgID       *string        `json:"orgId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt   time.Time      `json:"createdAt"`
	Splits      []ExpenseSplit `json:"splits,omitempty" gorm:"foreignKey:ExpenseID"`
}

// ExpenseSplit 开支分摊
//
// 记录某个成员应承担的金额及结算状态。
type ExpenseSplit struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	ExpenseID uint       `json:"expenseId" gorm:"index;not null"`
	UserID    string     `json:"userId" gorm:"type:varchar(36);index;not null"`
	Amount    float64    `json:"amount" gorm:"not null"`
	IsSettled bool       `json:"isSettled" gorm:"default:false"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}
