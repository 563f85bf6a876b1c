package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSnapshot checks every profile and transaction before anything is written.
func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParameter)
	}

	for i, p := range snap.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: profile at index %d: %w", ErrInvalidSnapshot, i, err)
		}
	}

	seen := make(map[string]bool, len(snap.Accounts))
	for i, account := range snap.Accounts {
		if err := validateString(account.UserID, "account user ID"); err != nil {
			return fmt.Errorf("%w: account at index %d: %w", ErrInvalidSnapshot, i, err)
		}
		if seen[account.UserID] {
			return fmt.Errorf("%w: duplicate account for %s", ErrInvalidSnapshot, account.UserID)
		}
		seen[account.UserID] = true

		if err := validateTransactions(account.UserID, account.Transactions); err != nil {
			return fmt.Errorf("%w: account %s: %w", ErrInvalidSnapshot, account.UserID, err)
		}
	}
	return nil
}

func validateTransactions(userID string, txns []model.Transaction) error {
	for i, txn := range txns {
		if err := txn.Validate(); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if txn.UserID != userID {
			return fmt.Errorf("transaction at index %d: %w: belongs to %s", i, model.ErrInvalidTransaction, txn.UserID)
		}
	}
	return nil
}
