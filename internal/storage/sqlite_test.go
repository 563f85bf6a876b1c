package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testSnapshot() *Snapshot {
	base := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	return &Snapshot{
		Profiles: []model.UserProfile{
			{
				ID: "u1", Name: "Ada", Age: 30, PurchaseAge: 35,
				NetIncome: 5000, Expenses: 3000, Wealth: 20000, SavingRate: 0.4,
				TargetPropertyPrice: 400000, UpdatedAt: base,
			},
		},
		Accounts: []model.BankAccount{
			{
				ID: "acc-1", UserID: "u1", Balance: 4200, LastUpdated: base,
				Transactions: []model.Transaction{
					{
						ID: "b", UserID: "u1", Type: model.TypeIncome, Category: model.CategorySalary,
						Amount: 5000, Date: base, IsRecurring: true, RecurringDay: 1,
						Description: "Salary",
					},
					{
						ID: "a", UserID: "u1", Type: model.TypeExpense, Category: model.CategoryFood,
						Amount: 800, Date: base.Add(24 * time.Hour), SourceID: "tpl-1",
						Description: "Groceries",
					},
				},
			},
			{ID: "acc-2", UserID: "u2", LastUpdated: base},
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	var indexCount int
	require.NoError(t, store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_transactions_date'`).Scan(&indexCount))
	assert.Equal(t, 1, indexCount)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	snap := testSnapshot()
	info, err := store.SaveSnapshot(ctx, snap, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Profiles)
	assert.Equal(t, 2, info.Accounts)
	assert.Equal(t, 2, info.Transactions)

	loaded, err := store.LoadSnapshot(ctx, time.UTC)
	require.NoError(t, err)

	require.Len(t, loaded.Profiles, 1)
	assert.Equal(t, snap.Profiles[0], loaded.Profiles[0])

	require.Len(t, loaded.Accounts, 2)
	got := loaded.Accounts[0]
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 4200.0, got.Balance)
	require.Len(t, got.Transactions, 2)
	// insertion order survives, not id order
	assert.Equal(t, "b", got.Transactions[0].ID)
	assert.Equal(t, snap.Accounts[0].Transactions, got.Transactions)
	assert.Empty(t, loaded.Accounts[1].Transactions)
}

func TestSnapshot_ReplacesPreviousState(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, testSnapshot(), "")
	require.NoError(t, err)

	_, err = store.SaveSnapshot(ctx, &Snapshot{}, "cleared")
	require.NoError(t, err)

	loaded, err := store.LoadSnapshot(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Profiles)
	assert.Empty(t, loaded.Accounts)

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cleared", latest.Note)
	assert.Equal(t, int64(2), latest.ID)
}

func TestSnapshot_InvalidIsNotWritten(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, testSnapshot(), "")
	require.NoError(t, err)

	bad := testSnapshot()
	bad.Accounts[0].Transactions[0].UserID = "someone-else"
	_, err = store.SaveSnapshot(ctx, bad, "")
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	dup := testSnapshot()
	dup.Accounts[1].UserID = "u1"
	_, err = store.SaveSnapshot(ctx, dup, "")
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = store.SaveSnapshot(ctx, nil, "")
	require.ErrorIs(t, err, ErrNilParameter)

	loaded, err := store.LoadSnapshot(ctx, time.UTC)
	require.NoError(t, err)
	assert.Len(t, loaded.Accounts, 2)
}

func TestLatestSnapshot_Empty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.LatestSnapshot(context.Background())
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestNilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // exercising the nil guard
	_, err := store.LoadSnapshot(nil, time.UTC)
	require.ErrorIs(t, err, ErrNilContext)
}
