package service

import (
	"errors"
	"math"
	"strings"
	"time"

	"nexo/backend/internal/cache"
	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"
)

var (
	ErrExpenseAmountInvalid = errors.New("expense amount must be positive")
	ErrExpenseDescRequired  = errors.New("expense description is required")
	ErrSplitAmountMismatch  = errors.New("split amounts do not add up to expense amount")
	ErrSplitUserRequired    = errors.New("split user is required")
)

// splitTolerance 分摊金额校验的浮点容差（一分钱）
const splitTolerance = 0.01

// balanceCacheTTL 余额计算结果的缓存时间
const balanceCacheTTL = 30 * time.Second

// ExpenseService 开支记账业务逻辑服务
type ExpenseService struct {
	repo storage.ExpenseRepository

	// 余额是全量扫描聚合，短暂缓存，任何开支变更都会失效对应范围
	balances *cache.LocalCache
}

// NewExpenseService 创建开支服务
func NewExpenseService(repo storage.ExpenseRepository) *ExpenseService {
	return &ExpenseService{
		repo:     repo,
		balances: cache.NewLocalCache(1024, balanceCacheTTL),
	}
}

// Close 停止余额缓存的后台清扫协程
func (s *ExpenseService) Close() {
	s.balances.Close()
}

// balanceCacheKey 余额缓存的范围键：家庭组上下文或个人上下文
func balanceCacheKey(identity *domain.Identity) string {
	if identity.OrgID != nil {
		return "org:" + *identity.OrgID
	}
	return "user:" + identity.UserID
}

// SplitInput 单条分摊的输入参数
type SplitInput struct {
	UserID string
	Amount float64
}

// CreateExpenseInput 记账输入参数
type CreateExpenseInput struct {
	Amount      float64
	Description string
	Category    *string
	Date        *time.Time
	Splits      []SplitInput
	SplitAmong  []string // 与 Splits 二选一：按人数均摊
}

// CreateExpense 新增开支记录
//
// 分摊有两种方式：显式金额列表（总和必须等于开支金额，容差一分钱），
// 或成员ID列表按人数均摊（余数记入第一个成员）。
func (s *ExpenseService) CreateExpense(identity *domain.Identity, input CreateExpenseInput) (*domain.Expense, error) {
	if input.Amount <= 0 {
		return nil, ErrExpenseAmountInvalid
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrExpenseDescRequired
	}

	date := time.Now().UTC()
	if input.Date != nil {
		date = *input.Date
	}

	splits, err := buildSplits(input)
	if err != nil {
		return nil, err
	}

	expense := &domain.Expense{
		Amount:      input.Amount,
		Description: description,
		Category:    input.Category,
		Date:        date,
		PayerID:     identity.UserID,
		OrgID:       identity.OrgID,
		CreatedAt:   time.Now().UTC(),
		Splits:      splits,
	}

	if err := s.repo.SaveExpense(expense); err != nil {
		return nil, err
	}
	s.balances.Delete(balanceCacheKey(identity))
	return expense, nil
}

// buildSplits 根据输入构造分摊列表
func buildSplits(input CreateExpenseInput) ([]domain.ExpenseSplit, error) {
	if len(input.Splits) > 0 {
		total := 0.0
		splits := make([]domain.ExpenseSplit, 0, len(input.Splits))
		for _, sp := range input.Splits {
			if sp.UserID == "" {
				return nil, ErrSplitUserRequired
			}
			if sp.Amount <= 0 {
				return nil, ErrExpenseAmountInvalid
			}
			total += sp.Amount
			splits = append(splits, domain.ExpenseSplit{
				UserID: sp.UserID,
				Amount: roundCents(sp.Amount),
			})
		}
		if math.Abs(total-input.Amount) > splitTolerance {
			return nil, ErrSplitAmountMismatch
		}
		return splits, nil
	}

	if len(input.SplitAmong) == 0 {
		return nil, nil
	}

	// 均摊：按分单位整除，余数补给第一个成员
	n := len(input.SplitAmong)
	totalCents := int(math.Round(input.Amount * 100))
	share := totalCents / n
	remainder := totalCents % n

	splits := make([]domain.ExpenseSplit, 0, n)
	for i, userID := range input.SplitAmong {
		if userID == "" {
			return nil, ErrSplitUserRequired
		}
		cents := share
		if i == 0 {
			cents += remainder
		}
		splits = append(splits, domain.ExpenseSplit{
			UserID: userID,
			Amount: float64(cents) / 100,
		})
	}
	return splits, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ListExpenses 按时间倒序列出可见的开支记录
func (s *ExpenseService) ListExpenses(identity *domain.Identity, limit int) ([]domain.Expense, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	expenses, err := s.repo.ListExpenses(0)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Expense, 0, len(expenses))
	for _, exp := range expenses {
		if canAccess(identity, exp.OrgID, exp.PayerID) {
			visible = append(visible, exp)
			if len(visible) >= limit {
				break
			}
		}
	}
	return visible, nil
}

// GetExpense 获取单条开支记录（含分摊）
func (s *ExpenseService) GetExpense(identity *domain.Identity, id uint) (*domain.Expense, error) {
	expense, err := s.repo.GetExpense(id)
	if err != nil {
		return nil, err
	}
	if !canAccess(identity, expense.OrgID, expense.PayerID) {
		return nil, storage.ErrExpenseNotFound
	}
	return expense, nil
}

// UpdateExpenseInput 更新开支的输入参数
type UpdateExpenseInput struct {
	Amount      *float64
	Description *string
	Category    *string
	Date        *time.Time
}

// UpdateExpense 更新开支基础字段（不调整分摊）
func (s *ExpenseService) UpdateExpense(identity *domain.Identity, id uint, input UpdateExpenseInput) (*domain.Expense, error) {
	expense, err := s.GetExpense(identity, id)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, ErrExpenseAmountInvalid
		}
		expense.Amount = *input.Amount
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, ErrExpenseDescRequired
		}
		expense.Description = description
	}
	if input.Category != nil {
		expense.Category = input.Category
	}
	if input.Date != nil {
		expense.Date = *input.Date
	}

	if err := s.repo.UpdateExpense(expense); err != nil {
		return nil, err
	}
	s.balances.Delete(balanceCacheKey(identity))
	return expense, nil
}

// DeleteExpense 删除开支记录（级联删除分摊）
func (s *ExpenseService) DeleteExpense(identity *domain.Identity, id uint) error {
	if _, err := s.GetExpense(identity, id); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(id); err != nil {
		return err
	}
	s.balances.Delete(balanceCacheKey(identity))
	return nil
}

// SettleSplit 把一条分摊标记为已结算
//
// 分摊必须属于身份可见的开支记录。
func (s *ExpenseService) SettleSplit(identity *domain.Identity, expenseID, splitID uint) error {
	expense, err := s.GetExpense(identity, expenseID)
	if err != nil {
		return err
	}

	found := false
	for _, sp := range expense.Splits {
		if sp.ID == splitID {
			found = true
			break
		}
	}
	if !found {
		return storage.ErrSplitNotFound
	}

	if err := s.repo.SettleSplit(splitID, time.Now().UTC()); err != nil {
		return err
	}
	s.balances.Delete(balanceCacheKey(identity))
	return nil
}

// Balance 成员间的净欠款
type Balance struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"` // 正数表示应收，负数表示应付
}

// Balances 计算可见范围内所有未结算分摊形成的净余额
//
// 付款人对每条未结算分摊记应收，分摊承担人记应付。
func (s *ExpenseService) Balances(identity *domain.Identity) ([]Balance, error) {
	key := balanceCacheKey(identity)
	if cached, ok := s.balances.Get(key); ok {
		return cached.([]Balance), nil
	}

	expenses, err := s.ListExpenses(identity, 0)
	if err != nil {
		return nil, err
	}

	net := make(map[string]float64)
	for _, exp := range expenses {
		for _, sp := range exp.Splits {
			if sp.IsSettled || sp.UserID == exp.PayerID {
				continue
			}
			net[exp.PayerID] += sp.Amount
			net[sp.UserID] -= sp.Amount
		}
	}

	balances := make([]Balance, 0, len(net))
	for userID, amount := range net {
		amount = roundCents(amount)
		if amount == 0 {
			continue
		}
		balances = append(balances, Balance{UserID: userID, Amount: amount})
	}

	s.balances.Set(key, balances, balanceCacheTTL)
	return balances, nil
}
