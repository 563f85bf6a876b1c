// Package service defines the contracts shared between the ledger, the
// simulator and the outer surfaces (CLI, HTTP API, scheduler).
package service

import (
	"context"
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// ProfileStore reads and writes user financial profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (model.UserProfile, error)
	Save(ctx context.Context, profile model.UserProfile) error
	UpdateWealth(ctx context.Context, userID string, wealth float64) error
	List(ctx context.Context) ([]model.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

// Ledger is the per-user bank account store.
type Ledger interface {
	Account(userID string) (model.BankAccount, bool)
	InitializeAccount(userID string, balance float64) model.BankAccount
	AddTransaction(userID string, txn model.Transaction) error
	AddTransactions(userID string, txns ...model.Transaction) error
	RemoveTransaction(userID, txnID string) bool
	UpdateBalance(userID string, balance float64)
	ReplaceCategory(userID string, category model.Category, txns []model.Transaction) error
	ProcessMonthlyRecurringTransactions(userID string) ([]model.Transaction, error)
	ClearUser(userID string) bool
	Users() []string
}

// EventKind describes what changed in a ledger.
type EventKind string

// Ledger event kinds.
const (
	EventInitialized        EventKind = "initialized"
	EventTransactionAdded   EventKind = "transaction_added"
	EventTransactionRemoved EventKind = "transaction_removed"
	EventBalanceUpdated     EventKind = "balance_updated"
	EventCategoryReplaced   EventKind = "category_replaced"
	EventCleared            EventKind = "cleared"
	// EventSnapshot carries the current state when a stream opens.
	EventSnapshot EventKind = "snapshot"
)

// LedgerEvent is published after every ledger mutation.
type LedgerEvent struct {
	At      time.Time         `json:"at"`
	Kind    EventKind         `json:"kind"`
	UserID  string            `json:"user_id"`
	Account model.BankAccount `json:"account"`
}

// EventSource streams ledger changes. An empty userID subscribes to every user;
// the returned func unsubscribes and closes the channel.
type EventSource interface {
	Subscribe(userID string, buffer int) (<-chan LedgerEvent, func())
}
