package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/random"
	"github.com/Veraticus/dreambuilder/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestStore() (*Store, *calendar.FixedClock) {
	clock := calendar.NewFixedClock(testNow)
	return NewStore(clock), clock
}

func txn(id string, typ model.TransactionType, amount float64) model.Transaction {
	category := model.CategoryFood
	if typ == model.TypeIncome {
		category = model.CategorySalary
	}
	return model.Transaction{
		ID:          id,
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Description: id,
		Date:        testNow,
	}
}

func TestStore_AccountAbsent(t *testing.T) {
	store, _ := newTestStore()

	_, ok := store.Account("nobody")
	assert.False(t, ok)
	assert.Empty(t, store.Users())
	assert.False(t, store.RemoveTransaction("nobody", "x"))
}

func TestStore_AddTransactionCreatesAccount(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeExpense, 25)))

	account, ok := store.Account("alice")
	require.True(t, ok)
	assert.Equal(t, -25.0, account.Balance)
	require.Len(t, account.Transactions, 1)
	assert.Equal(t, "alice", account.Transactions[0].UserID)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, testNow, account.LastUpdated)
}

func TestStore_AddAndRemoveKeepBalanceInSync(t *testing.T) {
	store, _ := newTestStore()
	rng := random.NewSeeded(3)

	var ids []string
	for i := 0; i < 200; i++ {
		if len(ids) > 0 && rng.IntRange(0, 3) == 0 {
			idx := rng.IntRange(0, len(ids)-1)
			require.True(t, store.RemoveTransaction("alice", ids[idx]))
			ids = append(ids[:idx], ids[idx+1:]...)
			continue
		}
		typ := model.TypeExpense
		if rng.IntRange(0, 1) == 1 {
			typ = model.TypeIncome
		}
		id := fmt.Sprintf("t%d", i)
		require.NoError(t, store.AddTransaction("alice", txn(id, typ, rng.Float64Range(0, 1000))))
		ids = append(ids, id)
	}

	account, ok := store.Account("alice")
	require.True(t, ok)
	assert.Len(t, account.Transactions, len(ids))
	assert.InDelta(t, account.TransactionSum(), account.Balance, 1e-6)
}

func TestStore_RemoveUnknownTransactionIsNoop(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeIncome, 100)))

	assert.False(t, store.RemoveTransaction("alice", "missing"))

	account, _ := store.Account("alice")
	assert.Equal(t, 100.0, account.Balance)
	assert.Len(t, account.Transactions, 1)
}

func TestStore_UpdateBalanceAllowsDrift(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeIncome, 100)))

	store.UpdateBalance("alice", 5000)

	account, _ := store.Account("alice")
	assert.Equal(t, 5000.0, account.Balance)
	assert.Len(t, account.Transactions, 1)
	assert.InDelta(t, 4900.0, account.Drift(), 1e-9)

	// Later mutations stay additive on top of the overwritten balance.
	require.NoError(t, store.AddTransaction("alice", txn("t2", model.TypeExpense, 50)))
	account, _ = store.Account("alice")
	assert.Equal(t, 4950.0, account.Balance)
	assert.InDelta(t, 4900.0, account.Drift(), 1e-9)
}

func TestStore_UpdateBalanceCreatesAccount(t *testing.T) {
	store, _ := newTestStore()
	store.UpdateBalance("bob", 750)

	account, ok := store.Account("bob")
	require.True(t, ok)
	assert.Equal(t, 750.0, account.Balance)
	assert.Empty(t, account.Transactions)
}

func TestStore_InitializeAccount(t *testing.T) {
	store, _ := newTestStore()

	account := store.InitializeAccount("alice", 1000)
	assert.Equal(t, 1000.0, account.Balance)

	again := store.InitializeAccount("alice", 5)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, 1000.0, again.Balance)
}

func TestStore_AddTransactionsIsAllOrNothing(t *testing.T) {
	store, _ := newTestStore()

	bad := txn("t2", model.TypeExpense, -1)
	err := store.AddTransactions("alice", txn("t1", model.TypeIncome, 10), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidTransaction)

	_, ok := store.Account("alice")
	assert.False(t, ok)

	require.NoError(t, store.AddTransactions("alice",
		txn("t1", model.TypeIncome, 100),
		txn("t2", model.TypeExpense, 40),
	))
	account, _ := store.Account("alice")
	assert.Equal(t, 60.0, account.Balance)
	assert.Equal(t, "t1", account.Transactions[0].ID)
	assert.Equal(t, "t2", account.Transactions[1].ID)
}

func TestStore_RejectsForeignTransaction(t *testing.T) {
	store, _ := newTestStore()
	foreign := txn("t1", model.TypeIncome, 10)
	foreign.UserID = "bob"

	assert.ErrorIs(t, store.AddTransaction("alice", foreign), model.ErrInvalidTransaction)
}

func TestStore_ReplaceCategory(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.AddTransactions("alice",
		txn("salary", model.TypeIncome, 3000),
		txn("food-1", model.TypeExpense, 200),
		txn("food-2", model.TypeExpense, 100),
	))

	replacement := txn("food-3", model.TypeExpense, 120)
	require.NoError(t, store.ReplaceCategory("alice", model.CategoryFood, []model.Transaction{replacement}))

	account, _ := store.Account("alice")
	require.Len(t, account.Transactions, 2)
	assert.Equal(t, "salary", account.Transactions[0].ID)
	assert.Equal(t, "food-3", account.Transactions[1].ID)
	assert.InDelta(t, 2880.0, account.Balance, 1e-9)

	wrong := txn("x", model.TypeIncome, 1)
	assert.ErrorIs(t, store.ReplaceCategory("alice", model.CategoryFood, []model.Transaction{wrong}), model.ErrInvalidTransaction)
}

func TestStore_ClearUser(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeIncome, 10)))
	require.NoError(t, store.AddTransaction("bob", txn("t1", model.TypeIncome, 10)))

	assert.True(t, store.ClearUser("alice"))
	assert.False(t, store.ClearUser("alice"))

	_, ok := store.Account("alice")
	assert.False(t, ok)
	assert.Equal(t, []string{"bob"}, store.Users())

	require.NoError(t, store.AddTransaction("alice", txn("t2", model.TypeExpense, 5)))
	account, _ := store.Account("alice")
	assert.Equal(t, -5.0, account.Balance)
}

func TestStore_RestoreAndAccounts(t *testing.T) {
	store, _ := newTestStore()
	store.Restore(model.BankAccount{
		ID:           "acc-1",
		UserID:       "carol",
		Balance:      99,
		Transactions: []model.Transaction{txn("t1", model.TypeIncome, 10)},
	})

	accounts := store.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, 99.0, accounts[0].Balance)
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeIncome, 10)))

	account, _ := store.Account("alice")
	account.Transactions[0].Amount = 1_000_000
	account.Balance = 0

	fresh, _ := store.Account("alice")
	assert.Equal(t, 10.0, fresh.Transactions[0].Amount)
	assert.Equal(t, 10.0, fresh.Balance)
}

func TestStore_ConcurrentWritesOnOneUser(t *testing.T) {
	store, _ := newTestStore()

	const workers = 16
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_ = store.AddTransaction("alice", txn(id, model.TypeIncome, 1))
				if i%5 == 0 {
					store.RemoveTransaction("alice", id)
				}
				_, _ = store.Account("alice")
			}
		}(w)
	}
	wg.Wait()

	account, ok := store.Account("alice")
	require.True(t, ok)
	want := workers * perWorker * 4 / 5
	assert.Len(t, account.Transactions, want)
	assert.InDelta(t, float64(want), account.Balance, 1e-9)
}

func TestStore_ConcurrentUsersAreIndependent(t *testing.T) {
	store, _ := newTestStore()

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", u)
			for i := 0; i < 100; i++ {
				_ = store.AddTransaction(user, txn(fmt.Sprintf("t%d", i), model.TypeExpense, 2))
			}
		}(u)
	}
	wg.Wait()

	users := store.Users()
	require.Len(t, users, 8)
	for _, user := range users {
		account, _ := store.Account(user)
		assert.InDelta(t, -200.0, account.Balance, 1e-9, user)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store, _ := newTestStore()

	all, cancelAll := store.Subscribe("", 8)
	defer cancelAll()
	aliceOnly, cancelAlice := store.Subscribe("alice", 8)

	require.NoError(t, store.AddTransaction("alice", txn("t1", model.TypeIncome, 10)))
	require.NoError(t, store.AddTransaction("bob", txn("t1", model.TypeIncome, 20)))
	store.UpdateBalance("alice", 42)

	expectEvent := func(ch <-chan service.LedgerEvent, user string, kind service.EventKind, balance float64) {
		t.Helper()
		select {
		case ev := <-ch:
			assert.Equal(t, user, ev.UserID)
			assert.Equal(t, kind, ev.Kind)
			assert.Equal(t, balance, ev.Account.Balance)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}

	expectEvent(all, "alice", service.EventTransactionAdded, 10)
	expectEvent(all, "bob", service.EventTransactionAdded, 20)
	expectEvent(all, "alice", service.EventBalanceUpdated, 42)

	expectEvent(aliceOnly, "alice", service.EventTransactionAdded, 10)
	expectEvent(aliceOnly, "alice", service.EventBalanceUpdated, 42)

	cancelAlice()
	_, open := <-aliceOnly
	assert.False(t, open)
	cancelAlice()
}

func TestStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store, _ := newTestStore()
	_, cancel := store.Subscribe("alice", 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = store.AddTransaction("alice", txn(fmt.Sprintf("t%d", i), model.TypeIncome, 1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ledger writes blocked on a full subscriber")
	}
}
