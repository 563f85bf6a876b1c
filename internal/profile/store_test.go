package profile

import (
	"context"
	"testing"

	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrProfileNotFound)
	assert.ErrorIs(t, store.UpdateWealth(ctx, "alice", 10), common.ErrProfileNotFound)

	alice := model.UserProfile{ID: "alice", Age: 30, PurchaseAge: 35, NetIncome: 4000, Expenses: 2500, SavingRate: 0.3}
	require.NoError(t, store.Save(ctx, alice))
	require.NoError(t, store.Save(ctx, model.UserProfile{ID: "bob", NetIncome: 3000}))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4000.0, got.NetIncome)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.UpdateWealth(ctx, "alice", 12345.67))
	got, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 12345.67, got.Wealth)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].ID)
	assert.Equal(t, "bob", all[1].ID)

	require.NoError(t, store.Delete(ctx, "bob"))
	_, err = store.Get(ctx, "bob")
	assert.ErrorIs(t, err, common.ErrProfileNotFound)
}

func TestMemoryStore_RejectsInvalidProfile(t *testing.T) {
	store := NewMemoryStore()
	err := store.Save(context.Background(), model.UserProfile{ID: "x", SavingRate: 2})
	assert.ErrorIs(t, err, model.ErrInvalidProfile)
}
