package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					age INTEGER NOT NULL,
					purchase_age INTEGER NOT NULL,
					net_income REAL NOT NULL,
					expenses REAL NOT NULL,
					wealth REAL NOT NULL,
					saving_rate REAL NOT NULL,
					target_property_price REAL NOT NULL DEFAULT 0,
					updated_at INTEGER NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					user_id TEXT PRIMARY KEY,
					id TEXT NOT NULL,
					balance REAL NOT NULL,
					last_updated INTEGER NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					position INTEGER NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
					amount REAL NOT NULL CHECK (amount >= 0),
					category TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					date INTEGER NOT NULL,
					is_recurring INTEGER NOT NULL DEFAULT 0,
					recurring_day INTEGER,
					source_id TEXT,
					PRIMARY KEY (user_id, id),
					FOREIGN KEY (user_id) REFERENCES accounts(user_id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transactions_user_position ON transactions(user_id, position)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add snapshot history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					saved_at INTEGER NOT NULL,
					note TEXT NOT NULL DEFAULT '',
					profiles INTEGER NOT NULL,
					accounts INTEGER NOT NULL,
					transactions INTEGER NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(user_id, date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", classify(txErr))
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, classify(commitErr))
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
