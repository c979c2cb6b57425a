package memory

import (
	"testing"
	"time"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_APIKeyOperations(t *testing.T) {
	store := NewStore()

	key := &domain.APIKey{
		KeyHash:   "a3f5b8c2d1e4f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1",
		KeyPrefix: "nxk_AbCdEfGh",
		UserID:    "user-1",
		Name:      "Test Key",
		IsActive:  true,
	}
	key.SetScopeList([]string{domain.ScopeShoppingRead})

	// Test SaveAPIKey
	err := store.SaveAPIKey(key)
	require.NoError(t, err)
	assert.NotZero(t, key.ID)

	// Duplicate hash must be rejected
	dup := &domain.APIKey{KeyHash: key.KeyHash, KeyPrefix: key.KeyPrefix, UserID: "user-2", Name: "Dup"}
	err = store.SaveAPIKey(dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKeyHash)

	// Test GetAPIKeyByHash
	got, err := store.GetAPIKeyByHash(key.KeyHash)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, []string{domain.ScopeShoppingRead}, got.ScopeList())

	_, err = store.GetAPIKeyByHash("missing")
	assert.ErrorIs(t, err, storage.ErrAPIKeyNotFound)

	// Test ListAPIKeysByUserID
	keys, err := store.ListAPIKeysByUserID("user-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// Test TouchAPIKey
	used := time.Now()
	require.NoError(t, store.TouchAPIKey(key.ID, used))
	got, err = store.GetAPIKey(key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, used, *got.LastUsedAt, time.Second)
}

func TestMemoryStore_DeactivateAPIKey(t *testing.T) {
	store := NewStore()

	key := &domain.APIKey{KeyHash: "hash-1", KeyPrefix: "nxk_xxxxxxxx", UserID: "owner", Name: "k", IsActive: true}
	require.NoError(t, store.SaveAPIKey(key))

	// Wrong owner cannot deactivate
	ok, err := store.DeactivateAPIKey(key.ID, "intruder")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetAPIKey(key.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// Owner deactivates
	ok, err = store.DeactivateAPIKey(key.ID, "owner")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = store.GetAPIKey(key.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// Deactivating again still reports an affected row
	ok, err = store.DeactivateAPIKey(key.ID, "owner")
	require.NoError(t, err)
	assert.True(t, ok)

	// Missing key
	ok, err = store.DeactivateAPIKey(9999, "owner")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ShoppingOperations(t *testing.T) {
	store := NewStore()

	item := &domain.ShoppingItem{
		Name:      "Milk",
		Quantity:  2,
		Type:      domain.ItemTypeFood,
		Priority:  domain.DefaultPriority,
		Currency:  domain.DefaultCurrency,
		CreatedBy: "user-1",
	}
	require.NoError(t, store.SaveShoppingItem(item))
	assert.NotZero(t, item.ID)

	other := &domain.ShoppingItem{Name: "Soap", Type: domain.ItemTypeBathroom, IsChecked: true, CreatedBy: "user-1"}
	require.NoError(t, store.SaveShoppingItem(other))

	// Filter by type
	foodType := domain.ItemTypeFood
	items, err := store.ListShoppingItems(domain.ShoppingFilter{Type: &foodType})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)

	// Filter by checked state
	checked := true
	items, err = store.ListShoppingItems(domain.ShoppingFilter{Checked: &checked})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Soap", items[0].Name)

	require.NoError(t, store.DeleteShoppingItem(other.ID))
	items, err = store.ListShoppingItems(domain.ShoppingFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMemoryStore_EventWindow(t *testing.T) {
	store := NewStore()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		event := &domain.Event{
			Title:     "Event",
			StartDate: base.AddDate(0, 0, i*7),
			Color:     domain.DefaultEventColor,
			CreatedBy: "user-1",
		}
		require.NoError(t, store.SaveEvent(event))
	}

	from := base.AddDate(0, 0, 3)
	to := base.AddDate(0, 0, 10)
	events, err := store.ListEvents(domain.EventFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, base.AddDate(0, 0, 7), events[0].StartDate)
}

func TestMemoryStore_ExpenseSplits(t *testing.T) {
	store := NewStore()

	expense := &domain.Expense{
		Amount:      30,
		Description: "Groceries",
		Date:        time.Now(),
		PayerID:     "user-1",
		Splits: []domain.ExpenseSplit{
			{UserID: "user-1", Amount: 15},
			{UserID: "user-2", Amount: 15},
		},
	}
	require.NoError(t, store.SaveExpense(expense))
	require.Len(t, expense.Splits, 2)
	assert.NotZero(t, expense.Splits[0].ID)

	// Settle one split
	require.NoError(t, store.SettleSplit(expense.Splits[1].ID, time.Now()))

	got, err := store.GetExpense(expense.ID)
	require.NoError(t, err)
	assert.False(t, got.Splits[0].IsSettled)
	assert.True(t, got.Splits[1].IsSettled)
	assert.NotNil(t, got.Splits[1].SettledAt)

	err = store.SettleSplit(9999, time.Now())
	assert.ErrorIs(t, err, storage.ErrSplitNotFound)
}

func TestMemoryStore_RollCompletedChores(t *testing.T) {
	store := NewStore()

	weekly := domain.FrequencyWeekly
	due := time.Now().Add(-1 * time.Hour)
	completedBy := "user-1"
	completedAt := time.Now()
	chore := &domain.Chore{
		Title:       "Take out trash",
		Frequency:   &weekly,
		DueDate:     &due,
		Status:      domain.ChoreStatusCompleted,
		CompletedBy: &completedBy,
		CompletedAt: &completedAt,
		CreatedBy:   "user-1",
	}
	require.NoError(t, store.SaveChore(chore))

	count, err := store.RollCompletedChores(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetChore(chore.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChoreStatusPending, got.Status)
	assert.Nil(t, got.CompletedBy)
	assert.Nil(t, got.CompletedAt)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due.AddDate(0, 0, 7).Unix(), got.DueDate.Unix())

	// Rolling again does nothing until it is completed again
	count, err = store.RollCompletedChores(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryStore_UserOperations(t *testing.T) {
	store := NewStore()

	user := &domain.User{ID: "user-1", Email: "Anna@Example.com", Name: "Anna", IsActive: true}
	require.NoError(t, store.CreateUser(user))

	// Email lookup is case-insensitive
	got, err := store.GetUserByEmail("anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	dup := &domain.User{ID: "user-2", Email: "anna@example.com"}
	err = store.CreateUser(dup)
	assert.ErrorIs(t, err, storage.ErrEmailExists)

	require.NoError(t, store.UpdateLastLogin("user-1"))
	got, err = store.GetUserByID("user-1")
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestMemoryStore_OrganizationMembers(t *testing.T) {
	store := NewStore()

	org := &domain.Organization{ID: "org-1", Name: "Home", Slug: "home", CreatedBy: "user-1"}
	require.NoError(t, store.SaveOrganization(org))

	err := store.SaveOrganization(&domain.Organization{ID: "org-2", Name: "Other", Slug: "home", CreatedBy: "user-2"})
	assert.ErrorIs(t, err, storage.ErrSlugExists)

	require.NoError(t, store.AddMember(&domain.OrganizationMember{OrgID: "org-1", UserID: "user-1", Role: domain.OrgRoleAdmin}))
	require.NoError(t, store.AddMember(&domain.OrganizationMember{OrgID: "org-1", UserID: "user-2", Role: domain.OrgRoleMember}))

	err = store.AddMember(&domain.OrganizationMember{OrgID: "org-1", UserID: "user-2"})
	assert.ErrorIs(t, err, storage.ErrMemberExists)

	members, err := store.ListMembers("org-1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	orgs, err := store.ListOrganizationsByUserID("user-2")
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "org-1", orgs[0].ID)

	require.NoError(t, store.RemoveMember("org-1", "user-2"))
	_, err = store.GetMember("org-1", "user-2")
	assert.ErrorIs(t, err, storage.ErrMemberNotFound)
}

func TestMemoryStore_RateLimit(t *testing.T) {
	store := NewStore()

	count, err := store.IncrementRateLimit("login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.IncrementRateLimit("login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	current, err := store.GetRateLimit("login:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)

	current, err = store.GetRateLimit("unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
}
