package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupManager keeps whole-database copies next to the ledger database so a
// bad import or simulation run can be rolled back.
type BackupManager struct {
	store      *SQLiteStorage
	backupsDir string
}

// BackupInfo describes a backup on disk.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
	ErrInMemoryBackup  = errors.New("in-memory databases cannot be backed up")
)

const maxAutoBackups = 5

// NewBackupManager creates a manager that stores backups in a "backups"
// directory beside the database file.
func NewBackupManager(store *SQLiteStorage) (*BackupManager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParameter)
	}
	if store.dbPath == ":memory:" {
		return nil, ErrInMemoryBackup
	}

	dbPath, err := filepath.Abs(store.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	store.dbPath = dbPath

	backupsDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{store: store, backupsDir: backupsDir}, nil
}

func validateBackupID(id string) error {
	if err := validateString(id, "backup ID"); err != nil {
		return err
	}
	if strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return errors.New("invalid backup ID: cannot contain path separators or quotes")
	}
	return nil
}

func (bm *BackupManager) paths(id string) (string, string) {
	return filepath.Join(bm.backupsDir, id+".db"), filepath.Join(bm.backupsDir, id+".meta.json")
}

// Create writes a consistent copy of the database. An empty tag generates a
// timestamped one.
func (bm *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if tag == "" {
		tag = "backup-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	backupPath, metaPath := bm.paths(tag)
	if _, err := os.Stat(backupPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts, err := bm.rowCounts(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := bm.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", classify(err))
	}
	// #nosec G201 - tag is validated and backupsDir is derived from an absolute path
	if _, err := bm.store.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", classify(err))
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := &BackupInfo{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: schemaVersion,
	}
	if err := writeMetadata(metaPath, info); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Error("failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	return info, nil
}

// AutoBackup creates a backup tagged with prefix and prunes old automatic ones.
func (bm *BackupManager) AutoBackup(ctx context.Context, prefix string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", prefix, time.Now().Format("2006-01-02-150405.000"))
	info, err := bm.Create(ctx, tag, "Automatic backup before "+prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto backup: %w", err)
	}

	info.IsAuto = true
	_, metaPath := bm.paths(tag)
	if err := writeMetadata(metaPath, info); err != nil {
		slog.Error("failed to mark backup as automatic", "error", err, "backup", tag)
	}

	if err := bm.pruneAuto(ctx); err != nil {
		slog.Warn("failed to prune automatic backups", "error", err)
	}
	return info, nil
}

// List returns all backups, newest first.
func (bm *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := readMetadata(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the live database with a backup and reopens the store.
func (bm *BackupManager) Restore(ctx context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	backupPath, metaPath := bm.paths(id)

	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}
	if _, err := readMetadata(metaPath); err != nil {
		return fmt.Errorf("failed to load backup metadata: %w", err)
	}
	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}

	if err := bm.store.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	// Stale WAL pages would be replayed on top of the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(bm.store.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove WAL file", "file", bm.store.dbPath+suffix, "error", err)
		}
	}

	rollback := bm.store.dbPath + ".restore-backup"
	if err := copyFile(bm.store.dbPath, rollback); err != nil {
		return fmt.Errorf("failed to save current database: %w", err)
	}
	if err := copyFile(backupPath, bm.store.dbPath); err != nil {
		if restoreErr := copyFile(rollback, bm.store.dbPath); restoreErr != nil {
			slog.Error("failed to roll back after restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	if err := os.Remove(rollback); err != nil {
		slog.Error("failed to remove rollback file", "error", err)
	}

	reopened, err := NewSQLiteStorage(bm.store.dbPath)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	bm.store.db = reopened.db
	return bm.store.Migrate(ctx)
}

// Delete removes a backup and its metadata.
func (bm *BackupManager) Delete(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	backupPath, metaPath := bm.paths(id)

	if err := os.Remove(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(metaPath); err != nil {
		slog.Debug("failed to remove backup metadata", "error", err, "path", metaPath)
	}
	return nil
}

func (bm *BackupManager) pruneAuto(ctx context.Context) error {
	backups, err := bm.List(ctx)
	if err != nil {
		return err
	}

	var kept int
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		kept++
		if kept > maxAutoBackups {
			if err := bm.Delete(ctx, b.ID); err != nil {
				slog.Debug("failed to delete old automatic backup", "error", err, "backup", b.ID)
			}
		}
	}
	return nil
}

func (bm *BackupManager) rowCounts(ctx context.Context) (map[string]int, error) {
	queries := map[string]string{
		"profiles":     "SELECT COUNT(*) FROM profiles",
		"accounts":     "SELECT COUNT(*) FROM accounts",
		"transactions": "SELECT COUNT(*) FROM transactions",
	}

	counts := make(map[string]int, len(queries))
	for table, query := range queries {
		var n int
		if err := bm.store.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, classify(err))
		}
		counts[table] = n
	}
	return counts, nil
}

func writeMetadata(path string, info *BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readMetadata(path string) (*BackupInfo, error) {
	// #nosec G304 - path is built from a validated backup ID
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close backup database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - both paths are derived from the configured database path
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			slog.Error("failed to close source file", "error", err)
		}
	}()

	tmp := dst + ".tmp"
	// #nosec G304
	destination, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
