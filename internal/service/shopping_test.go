package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexo/backend/internal/domain"
	"nexo/backend/internal/storage/memory"
)

func TestCreateItemDefaults(t *testing.T) {
	svc := NewShoppingService(memory.NewStore())

	item, err := svc.CreateItem(testIdentity("alice"), CreateItemInput{Name: "  Milk "})
	require.NoError(t, err)
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, domain.ItemTypeOther, item.Type)
	assert.Equal(t, domain.DefaultPriority, item.Priority)
	assert.Equal(t, "EUR", item.Currency)
	assert.False(t, item.IsChecked)
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewShoppingService(memory.NewStore())

	_, err := svc.CreateItem(testIdentity("alice"), CreateItemInput{Name: ""})
	assert.ErrorIs(t, err, ErrItemNameRequired)

	bad := domain.ItemType("garage")
	_, err = svc.CreateItem(testIdentity("alice"), CreateItemInput{Name: "Ladder", Type: &bad})
	assert.ErrorIs(t, err, ErrItemTypeInvalid)

	five := 5
	_, err = svc.CreateItem(testIdentity("alice"), CreateItemInput{Name: "Bread", Priority: &five})
	assert.ErrorIs(t, err, ErrPriorityInvalid)
}

func TestToggleItem(t *testing.T) {
	svc := NewShoppingService(memory.NewStore())

	alice := orgIdentity("alice", "org-1")
	item, err := svc.CreateItem(alice, CreateItemInput{Name: "Eggs"})
	require.NoError(t, err)

	// bob in the same household checks the item off
	bob := orgIdentity("bob", "org-1")
	toggled, err := svc.ToggleItem(bob, item.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsChecked)
	require.NotNil(t, toggled.CheckedBy)
	assert.Equal(t, "bob", *toggled.CheckedBy)
	assert.NotNil(t, toggled.CheckedAt)

	// Unchecking clears the checker stamp
	toggled, err = svc.ToggleItem(alice, item.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsChecked)
	assert.Nil(t, toggled.CheckedBy)
	assert.Nil(t, toggled.CheckedAt)
}

func TestItemVisibility(t *testing.T) {
	svc := NewShoppingService(memory.NewStore())

	_, err := svc.CreateItem(orgIdentity("alice", "org-1"), CreateItemInput{Name: "Shared butter"})
	require.NoError(t, err)
	personal, err := svc.CreateItem(testIdentity("alice"), CreateItemInput{Name: "Private chocolate"})
	require.NoError(t, err)

	// Org members see the org row but not alice's personal row
	items, err := svc.ListItems(orgIdentity("bob", "org-1"), domain.ShoppingFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shared butter", items[0].Name)

	// Personal key sees only org-less rows it created
	items, err = svc.ListItems(testIdentity("alice"), domain.ShoppingFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Private chocolate", items[0].Name)

	// Another user's personal key sees nothing
	items, err = svc.ListItems(testIdentity("bob"), domain.ShoppingFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.GetItem(testIdentity("bob"), personal.ID)
	assert.Error(t, err)
}

func TestClearChecked(t *testing.T) {
	svc := NewShoppingService(memory.NewStore())

	alice := testIdentity("alice")
	first, err := svc.CreateItem(alice, CreateItemInput{Name: "Done"})
	require.NoError(t, err)
	_, err = svc.CreateItem(alice, CreateItemInput{Name: "Pending"})
	require.NoError(t, err)

	// Checked item created by someone else stays untouched
	otherChecked, err := svc.CreateItem(testIdentity("bob"), CreateItemInput{Name: "Bob's"})
	require.NoError(t, err)
	_, err = svc.ToggleItem(testIdentity("bob"), otherChecked.ID)
	require.NoError(t, err)

	_, err = svc.ToggleItem(alice, first.ID)
	require.NoError(t, err)

	deleted, err := svc.ClearChecked(alice)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := svc.ListItems(alice, domain.ShoppingFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Pending", remaining[0].Name)

	// Bob's checked item survived alice's clear
	_, err = svc.GetItem(testIdentity("bob"), otherChecked.ID)
	assert.NoError(t, err)
}
