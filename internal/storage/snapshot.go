package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// Snapshot is the full state of the profile and ledger stores.
type Snapshot struct {
	Profiles []model.UserProfile
	Accounts []model.BankAccount
}

// SnapshotInfo describes a saved snapshot.
type SnapshotInfo struct {
	SavedAt      time.Time
	Note         string
	ID           int64
	Profiles     int
	Accounts     int
	Transactions int
}

// ErrNoSnapshot is returned when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// SaveSnapshot replaces the stored state with snap inside one database
// transaction and records a history entry.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *Snapshot, note string) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"transactions", "accounts", "profiles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, classify(err))
		}
	}

	if err := saveProfilesTx(ctx, tx, snap.Profiles); err != nil {
		return nil, err
	}
	txnCount, err := saveAccountsTx(ctx, tx, snap.Accounts)
	if err != nil {
		return nil, err
	}

	info := &SnapshotInfo{
		SavedAt:      time.Now(),
		Note:         note,
		Profiles:     len(snap.Profiles),
		Accounts:     len(snap.Accounts),
		Transactions: txnCount,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (saved_at, note, profiles, accounts, transactions)
		VALUES (?, ?, ?, ?, ?)`,
		info.SavedAt.UnixMilli(), info.Note, info.Profiles, info.Accounts, info.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", classify(err))
	}
	if info.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", classify(err))
	}

	slog.Debug("Saved snapshot",
		"profiles", info.Profiles,
		"accounts", info.Accounts,
		"transactions", info.Transactions)
	return info, nil
}

func saveProfilesTx(ctx context.Context, tx *sql.Tx, profiles []model.UserProfile) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles (id, name, age, purchase_age, net_income, expenses, wealth,
			saving_rate, target_property_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare profile insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Age, p.PurchaseAge, p.NetIncome, p.Expenses,
			p.Wealth, p.SavingRate, p.TargetPropertyPrice, p.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to save profile %s: %w", p.ID, classify(err))
		}
	}
	return nil
}

func saveAccountsTx(ctx context.Context, tx *sql.Tx, accounts []model.BankAccount) (int, error) {
	accountStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (user_id, id, balance, last_updated) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare account insert: %w", err)
	}
	defer func() {
		_ = accountStmt.Close()
	}()

	txnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (user_id, id, position, type, amount, category, description,
			date, is_recurring, recurring_day, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer func() {
		_ = txnStmt.Close()
	}()

	var count int
	for _, account := range accounts {
		if _, err := accountStmt.ExecContext(ctx, account.UserID, account.ID, account.Balance,
			account.LastUpdated.UnixMilli()); err != nil {
			return 0, fmt.Errorf("failed to save account %s: %w", account.UserID, classify(err))
		}

		for pos, txn := range account.Transactions {
			var recurringDay sql.NullInt64
			if txn.RecurringDay > 0 {
				recurringDay = sql.NullInt64{Int64: int64(txn.RecurringDay), Valid: true}
			}
			var sourceID sql.NullString
			if txn.SourceID != "" {
				sourceID = sql.NullString{String: txn.SourceID, Valid: true}
			}

			if _, err := txnStmt.ExecContext(ctx, account.UserID, txn.ID, pos, string(txn.Type), txn.Amount,
				string(txn.Category), txn.Description, txn.DateMillis(), txn.IsRecurring,
				recurringDay, sourceID); err != nil {
				return 0, fmt.Errorf("failed to save transaction %s: %w", txn.ID, classify(err))
			}
			count++
		}
	}
	return count, nil
}

// LoadSnapshot reads the stored state. Times are returned in loc (the local
// zone when nil).
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, loc *time.Location) (*Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	profiles, err := s.loadProfiles(ctx, loc)
	if err != nil {
		return nil, err
	}
	accounts, err := s.loadAccounts(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profiles: profiles, Accounts: accounts}, nil
}

func (s *SQLiteStorage) loadProfiles(ctx context.Context, loc *time.Location) ([]model.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age, purchase_age, net_income, expenses, wealth, saving_rate,
			target_property_price, updated_at
		FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var profiles []model.UserProfile
	for rows.Next() {
		var p model.UserProfile
		var updatedAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.PurchaseAge, &p.NetIncome, &p.Expenses,
			&p.Wealth, &p.SavingRate, &p.TargetPropertyPrice, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.UpdatedAt = time.UnixMilli(updatedAt).In(loc)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStorage) loadAccounts(ctx context.Context, loc *time.Location) ([]model.BankAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, id, balance, last_updated FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", classify(err))
	}

	var accounts []model.BankAccount
	for rows.Next() {
		var a model.BankAccount
		var lastUpdated int64
		if err := rows.Scan(&a.UserID, &a.ID, &a.Balance, &lastUpdated); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.LastUpdated = time.UnixMilli(lastUpdated).In(loc)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range accounts {
		txns, err := s.loadTransactions(ctx, accounts[i].UserID, loc)
		if err != nil {
			return nil, err
		}
		accounts[i].Transactions = txns
	}
	return accounts, nil
}

func (s *SQLiteStorage) loadTransactions(ctx context.Context, userID string, loc *time.Location) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, category, description, date, is_recurring, recurring_day, source_id
		FROM transactions WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var txns []model.Transaction
	for rows.Next() {
		var (
			txn          model.Transaction
			typ, cat     string
			date         int64
			recurringDay sql.NullInt64
			sourceID     sql.NullString
		)
		if err := rows.Scan(&txn.ID, &typ, &txn.Amount, &cat, &txn.Description, &date,
			&txn.IsRecurring, &recurringDay, &sourceID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.UserID = userID
		txn.Type = model.TransactionType(typ)
		txn.Category = model.Category(cat)
		txn.Date = time.UnixMilli(date).In(loc)
		txn.RecurringDay = int(recurringDay.Int64)
		txn.SourceID = sourceID.String
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// LatestSnapshot returns the most recent snapshot history entry.
func (s *SQLiteStorage) LatestSnapshot(ctx context.Context) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var info SnapshotInfo
	var savedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, saved_at, note, profiles, accounts, transactions
		FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&info.ID, &savedAt, &info.Note, &info.Profiles, &info.Accounts, &info.Transactions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", classify(err))
	}
	info.SavedAt = time.UnixMilli(savedAt)
	return &info, nil
}
