// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransactionType indicates whether money flows into or out of an account.
type TransactionType string

const (
	// TypeIncome adds to the account balance.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense subtracts from the account balance.
	TypeExpense TransactionType = "EXPENSE"
)

// ErrInvalidTransaction is wrapped by every transaction validation failure.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction represents a single ledger entry. Transactions are immutable once
// created; the ledger only ever removes or replaces them wholesale.
type Transaction struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	// SourceID is the id of the recurring template this transaction was emitted from.
	SourceID     string          `json:"source_id,omitempty"`
	Type         TransactionType `json:"type"`
	Category     Category        `json:"category"`
	Amount       float64         `json:"amount"`
	RecurringDay int             `json:"recurring_day,omitempty"`
	IsRecurring  bool            `json:"is_recurring"`
}

// Signed returns the amount with the sign applied to an account balance.
func (t Transaction) Signed() float64 {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return -t.Amount
}

// DateMillis returns the transaction date as epoch milliseconds.
func (t Transaction) DateMillis() int64 {
	return t.Date.UnixMilli()
}

// IsTemplate reports whether the transaction defines a recurring series
// rather than being an emitted copy of one.
func (t Transaction) IsTemplate() bool {
	return t.IsRecurring && t.SourceID == ""
}

// Validate checks the structural invariants of a transaction.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTransaction, t.Category)
	}
	if t.Amount < 0 || t.Amount != t.Amount {
		return fmt.Errorf("%w: amount must be non-negative, got %v", ErrInvalidTransaction, t.Amount)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if t.IsRecurring && (t.RecurringDay < 1 || t.RecurringDay > 31) {
		return fmt.Errorf("%w: recurring day must be between 1 and 31, got %d", ErrInvalidTransaction, t.RecurringDay)
	}
	return nil
}
