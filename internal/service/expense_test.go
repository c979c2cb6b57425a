package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage/memory"
)

func testIdentity(userID string) *domain.Identity {
	return &domain.Identity{UserID: userID, Scopes: []string{domain.ScopeWildcard}}
}

func TestCreateExpenseWithExplicitSplits(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())

	expense, err := svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      30,
		Description: "groceries",
		Splits: []SplitInput{
			{UserID: "alice", Amount: 10},
			{UserID: "bob", Amount: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", expense.PayerID)
	require.Len(t, expense.Splits, 2)
	assert.False(t, expense.Splits[0].IsSettled)
}

func TestCreateExpenseSplitMismatch(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())

	_, err := svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      30,
		Description: "groceries",
		Splits: []SplitInput{
			{UserID: "alice", Amount: 10},
			{UserID: "bob", Amount: 10},
		},
	})
	assert.ErrorIs(t, err, ErrSplitAmountMismatch)
}

func TestCreateExpenseEvenSplit(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())

	// 10.00 over three people: 3.34 + 3.33 + 3.33
	expense, err := svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      10,
		Description: "pizza",
		SplitAmong:  []string{"alice", "bob", "carol"},
	})
	require.NoError(t, err)
	require.Len(t, expense.Splits, 3)
	assert.InDelta(t, 3.34, expense.Splits[0].Amount, 0.001)
	assert.InDelta(t, 3.33, expense.Splits[1].Amount, 0.001)
	assert.InDelta(t, 3.33, expense.Splits[2].Amount, 0.001)

	total := 0.0
	for _, sp := range expense.Splits {
		total += sp.Amount
	}
	assert.InDelta(t, 10, total, 0.001)
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())

	_, err := svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      0,
		Description: "free",
	})
	assert.ErrorIs(t, err, ErrExpenseAmountInvalid)

	_, err = svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      5,
		Description: "   ",
	})
	assert.ErrorIs(t, err, ErrExpenseDescRequired)
}

func TestSettleSplitAndBalances(t *testing.T) {
	store := memory.NewStore()
	svc := NewExpenseService(store)

	expense, err := svc.CreateExpense(testIdentity("alice"), CreateExpenseInput{
		Amount:      40,
		Description: "utilities",
		Date:        timePtr(time.Now().UTC()),
		Splits: []SplitInput{
			{UserID: "alice", Amount: 20},
			{UserID: "bob", Amount: 20},
		},
	})
	require.NoError(t, err)

	// Unsettled: bob owes alice 20 (alice's own share is ignored)
	balances, err := svc.Balances(testIdentity("alice"))
	require.NoError(t, err)
	require.Len(t, balances, 2)
	net := map[string]float64{}
	for _, b := range balances {
		net[b.UserID] = b.Amount
	}
	assert.InDelta(t, 20, net["alice"], 0.001)
	assert.InDelta(t, -20, net["bob"], 0.001)

	// Settling bob's split clears the debt
	require.NoError(t, svc.SettleSplit(testIdentity("alice"), expense.ID, expense.Splits[1].ID))
	balances, err = svc.Balances(testIdentity("alice"))
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func timePtr(t time.Time) *time.Time { return &t }
