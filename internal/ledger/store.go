// Package ledger keeps the in-memory bank account of every user.
//
// Each user's account is guarded by its own mutex, so every mutation on one
// user is a single read-modify-write while different users never contend.
// The outer map lock only protects the set of users.
package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/service"
	"github.com/google/uuid"
)

var _ service.Ledger = (*Store)(nil)

type entry struct {
	account *model.BankAccount
	mu      sync.Mutex
}

// Store is the ledger of all users.
type Store struct {
	clock    calendar.Clock
	accounts map[string]*entry
	subs     map[int]*subscriber
	mu       sync.RWMutex
	subMu    sync.RWMutex
	nextSub  int
}

// NewStore creates an empty ledger using clock for timestamps.
func NewStore(clock calendar.Clock) *Store {
	if clock == nil {
		clock = calendar.NewSystemClock(nil)
	}
	return &Store{
		clock:    clock,
		accounts: make(map[string]*entry),
		subs:     make(map[int]*subscriber),
	}
}

// slot returns the entry for userID, registering an empty one if needed.
func (s *Store) slot(userID string) *entry {
	s.mu.RLock()
	e, ok := s.accounts[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.accounts[userID]; !ok {
		e = &entry{}
		s.accounts[userID] = e
	}
	return e
}

func (s *Store) lookup(userID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[userID]
}

func (s *Store) newAccount(userID string, balance float64) *model.BankAccount {
	return &model.BankAccount{
		ID:          uuid.NewString(),
		UserID:      userID,
		Balance:     balance,
		LastUpdated: s.clock.Now(),
	}
}

// Account returns a snapshot of the user's account.
func (s *Store) Account(userID string) (model.BankAccount, bool) {
	e := s.lookup(userID)
	if e == nil {
		return model.BankAccount{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.account == nil {
		return model.BankAccount{}, false
	}
	return e.account.Clone(), true
}

// InitializeAccount creates an empty account with the given balance. An
// existing account is returned unchanged.
func (s *Store) InitializeAccount(userID string, balance float64) model.BankAccount {
	e := s.slot(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account != nil {
		return e.account.Clone()
	}
	e.account = s.newAccount(userID, balance)
	s.publish(service.EventInitialized, e.account)
	return e.account.Clone()
}

func prepare(userID string, txn model.Transaction) (model.Transaction, error) {
	if txn.UserID == "" {
		txn.UserID = userID
	}
	if txn.UserID != userID {
		return txn, fmt.Errorf("%w: transaction belongs to %q, not %q", model.ErrInvalidTransaction, txn.UserID, userID)
	}
	if err := txn.Validate(); err != nil {
		return txn, err
	}
	return txn, nil
}

// apply appends txn and moves the balance by its signed amount. The caller
// holds e.mu.
func (s *Store) apply(e *entry, userID string, txn model.Transaction) {
	if e.account == nil {
		e.account = s.newAccount(userID, 0)
	}
	e.account.Transactions = append(e.account.Transactions, txn)
	e.account.Balance += txn.Signed()
	e.account.LastUpdated = s.clock.Now()
}

// AddTransaction appends txn to the user's ledger, creating the account on
// first use. An empty txn.UserID is filled in with userID.
func (s *Store) AddTransaction(userID string, txn model.Transaction) error {
	txn, err := prepare(userID, txn)
	if err != nil {
		return err
	}

	e := s.slot(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	s.apply(e, userID, txn)
	s.publish(service.EventTransactionAdded, e.account)
	return nil
}

// AddTransactions appends txns in order inside one critical section. Either all
// transactions are valid and applied, or none is.
func (s *Store) AddTransactions(userID string, txns ...model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	prepared := make([]model.Transaction, len(txns))
	for i, txn := range txns {
		p, err := prepare(userID, txn)
		if err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
		prepared[i] = p
	}

	e := s.slot(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, txn := range prepared {
		s.apply(e, userID, txn)
	}
	s.publish(service.EventTransactionAdded, e.account)
	return nil
}

// RemoveTransaction deletes the transaction and reverses its effect on the
// balance. It reports whether anything was removed.
func (s *Store) RemoveTransaction(userID, txnID string) bool {
	e := s.lookup(userID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.account == nil {
		return false
	}

	for i, txn := range e.account.Transactions {
		if txn.ID != txnID {
			continue
		}
		e.account.Transactions = append(e.account.Transactions[:i:i], e.account.Transactions[i+1:]...)
		e.account.Balance -= txn.Signed()
		e.account.LastUpdated = s.clock.Now()
		s.publish(service.EventTransactionRemoved, e.account)
		return true
	}
	return false
}

// UpdateBalance overwrites the balance without touching the transaction list,
// so the balance may no longer match the transactions afterwards.
func (s *Store) UpdateBalance(userID string, balance float64) {
	e := s.slot(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account == nil {
		e.account = s.newAccount(userID, balance)
	}
	e.account.Balance = balance
	e.account.LastUpdated = s.clock.Now()
	s.publish(service.EventBalanceUpdated, e.account)
}

// ReplaceCategory removes every transaction in category, reversing each, and
// then applies txns. All replacements must belong to the same category.
func (s *Store) ReplaceCategory(userID string, category model.Category, txns []model.Transaction) error {
	prepared := make([]model.Transaction, len(txns))
	for i, txn := range txns {
		if txn.Category != category {
			return fmt.Errorf("%w: replacement %q is %s, not %s", model.ErrInvalidTransaction, txn.ID, txn.Category, category)
		}
		p, err := prepare(userID, txn)
		if err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
		prepared[i] = p
	}

	e := s.slot(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account == nil {
		e.account = s.newAccount(userID, 0)
	}

	kept := e.account.Transactions[:0:0]
	for _, txn := range e.account.Transactions {
		if txn.Category == category {
			e.account.Balance -= txn.Signed()
			continue
		}
		kept = append(kept, txn)
	}
	e.account.Transactions = kept

	for _, txn := range prepared {
		s.apply(e, userID, txn)
	}
	e.account.LastUpdated = s.clock.Now()
	s.publish(service.EventCategoryReplaced, e.account)
	return nil
}

// ClearUser drops the user's account. It reports whether one existed.
func (s *Store) ClearUser(userID string) bool {
	e := s.lookup(userID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.account == nil {
		return false
	}
	cleared := model.BankAccount{UserID: userID, LastUpdated: s.clock.Now()}
	e.account = nil
	s.publish(service.EventCleared, &cleared)
	return true
}

// Restore installs account wholesale, replacing whatever the user had.
func (s *Store) Restore(account model.BankAccount) {
	e := s.slot(account.UserID)
	e.mu.Lock()
	defer e.mu.Unlock()

	restored := account.Clone()
	if restored.ID == "" {
		restored.ID = uuid.NewString()
	}
	e.account = &restored
	s.publish(service.EventInitialized, e.account)
}

// Users returns the IDs of every user with an account, sorted.
func (s *Store) Users() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	entries := make([]*entry, 0, len(s.accounts))
	for id, e := range s.accounts {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := ids[:0]
	for i, e := range entries {
		e.mu.Lock()
		exists := e.account != nil
		e.mu.Unlock()
		if exists {
			out = append(out, ids[i])
		}
	}
	sort.Strings(out)
	return out
}

// Accounts returns a snapshot of every account, ordered by user ID.
func (s *Store) Accounts() []model.BankAccount {
	users := s.Users()
	out := make([]model.BankAccount, 0, len(users))
	for _, id := range users {
		if account, ok := s.Account(id); ok {
			out = append(out, account)
		}
	}
	return out
}

func (s *Store) logger() *slog.Logger {
	return slog.Default().With("component", "ledger")
}
