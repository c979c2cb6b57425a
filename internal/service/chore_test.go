package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/monitoring"
	"nexo/backend/internal/storage/memory"
)

func orgIdentity(userID, orgID string) *domain.Identity {
	return &domain.Identity{UserID: userID, OrgID: &orgID, Scopes: []string{domain.ScopeWildcard}}
}

func TestCompleteChore(t *testing.T) {
	svc := NewChoreService(memory.NewStore(), zap.NewNop())

	// alice and bob share a household, so bob can complete alice's chore
	chore, err := svc.CreateChore(orgIdentity("alice", "org-1"), CreateChoreInput{
		Title: "take out trash",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChoreStatusPending, chore.Status)

	done, err := svc.CompleteChore(orgIdentity("bob", "org-1"), chore.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoreStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedBy)
	assert.Equal(t, "bob", *done.CompletedBy)
	assert.NotNil(t, done.CompletedAt)

	// Completing twice is an error
	_, err = svc.CompleteChore(orgIdentity("bob", "org-1"), chore.ID)
	assert.ErrorIs(t, err, ErrChoreAlreadyComplete)

	// A member of another household cannot even see the chore
	_, err = svc.GetChore(orgIdentity("mallory", "org-2"), chore.ID)
	assert.Error(t, err)

	// Reopen clears completion state
	reopened, err := svc.ReopenChore(orgIdentity("alice", "org-1"), chore.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoreStatusPending, reopened.Status)
	assert.Nil(t, reopened.CompletedBy)
}

func TestRollRecurring(t *testing.T) {
	store := memory.NewStore()
	svc := NewChoreService(store, zap.NewNop())

	weekly := domain.FrequencyWeekly
	due := time.Now().UTC().Add(-time.Hour)
	chore, err := svc.CreateChore(testIdentity("alice"), CreateChoreInput{
		Title:     "water plants",
		Frequency: &weekly,
		DueDate:   &due,
	})
	require.NoError(t, err)

	_, err = svc.CompleteChore(testIdentity("alice"), chore.ID)
	require.NoError(t, err)

	count, err := svc.RollRecurring()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rolled, err := store.GetChore(chore.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoreStatusPending, rolled.Status)
	assert.Nil(t, rolled.CompletedBy)
	require.NotNil(t, rolled.DueDate)
	assert.WithinDuration(t, due.AddDate(0, 0, 7), *rolled.DueDate, time.Second)

	// Nothing left to roll on the second pass
	count, err = svc.RollRecurring()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRollRecurringRecordsMetrics(t *testing.T) {
	store := memory.NewStore()
	svc := NewChoreService(store, zap.NewNop())

	// promauto 注册在默认 registry 上，本测试二进制只在这里创建一次
	metrics := monitoring.NewMetrics()
	svc.SetMetrics(metrics)

	daily := domain.FrequencyDaily
	due := time.Now().UTC().Add(-time.Hour)
	chore, err := svc.CreateChore(testIdentity("alice"), CreateChoreInput{
		Title:     "feed the cat",
		Frequency: &daily,
		DueDate:   &due,
	})
	require.NoError(t, err)
	_, err = svc.CompleteChore(testIdentity("alice"), chore.ID)
	require.NoError(t, err)

	count, err := svc.RollRecurring()
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ChoresRolled))
}

func TestCreateChoreValidation(t *testing.T) {
	svc := NewChoreService(memory.NewStore(), zap.NewNop())

	_, err := svc.CreateChore(testIdentity("alice"), CreateChoreInput{Title: " "})
	assert.ErrorIs(t, err, ErrChoreTitleRequired)

	bad := domain.ChoreFrequency("yearly")
	_, err = svc.CreateChore(testIdentity("alice"), CreateChoreInput{
		Title:     "spring cleaning",
		Frequency: &bad,
	})
	assert.ErrorIs(t, err, ErrChoreFrequencyBad)
}
