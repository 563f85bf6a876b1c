package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv runs commands against one database file.
type cliEnv struct {
	dbPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	return &cliEnv{dbPath: filepath.Join(t.TempDir(), "dreambuilder.db")}
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.dbPath, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func (e *cliEnv) snapshot(t *testing.T) *storage.Snapshot {
	t.Helper()
	store, err := storage.NewSQLiteStorage(e.dbPath)
	require.NoError(t, err)
	defer store.Close()
	snap, err := store.LoadSnapshot(context.Background(), time.UTC)
	require.NoError(t, err)
	return snap
}

func (e *cliEnv) setReferenceProfile(t *testing.T, user string) {
	t.Helper()
	e.mustRun(t, "--user", user, "profile", "set",
		"--age", "30", "--purchase-age", "35",
		"--income", "4000", "--expenses", "2000",
		"--savings", "20000", "--saving-rate", "0.5",
		"--target", "400000")
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "version")
	assert.Equal(t, "dreambuilder dev\n", out)
}

func TestAfford_FromFlags(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "afford",
		"--age", "30", "--purchase-age", "35",
		"--savings", "20000", "--income", "4000", "--saving-rate", "0.5")

	assert.Contains(t, out, "$433,245.74")
	assert.Contains(t, out, "$293,245.74")
	assert.Contains(t, out, "$140,000.00")
}

func TestAfford_RequiresProfileOrFlags(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "afford")
	require.Error(t, err)
	assert.Contains(t, cliMessage(err), "profile setup")
}

func TestAfford_RejectsInvalidInput(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "afford", "--income", "-5")
	require.Error(t, err)
}

func TestProfileAndPlan(t *testing.T) {
	env := newCLIEnv(t)
	env.setReferenceProfile(t, "alice")

	out := env.mustRun(t, "--user", "alice", "plan")
	assert.Contains(t, out, "3 years 7 months")

	out = env.mustRun(t, "--user", "alice", "afford", "--saving-rate", "0")
	assert.Contains(t, out, "$313,245.74")

	snap := env.snapshot(t)
	require.Len(t, snap.Profiles, 1)
	assert.Equal(t, "alice", snap.Profiles[0].ID)
	assert.Equal(t, 0.5, snap.Profiles[0].SavingRate, "what-if flags must not change the stored profile")
}

func TestPlan_RequiresTarget(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "plan", "--income", "4000")
	require.Error(t, err)
	assert.Contains(t, cliMessage(err), "--target")
}

func TestProfileSetup_Interactive(t *testing.T) {
	env := newCLIEnv(t)
	answers := strings.Join([]string{"Bob", "28", "33", "5000", "3000", "10000", "0.3", "350000"}, "\n") + "\n"

	out, err := env.run(t, answers, "--user", "bob", "profile", "setup")
	require.NoError(t, err, out)

	snap := env.snapshot(t)
	require.Len(t, snap.Profiles, 1)
	p := snap.Profiles[0]
	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, 33, p.PurchaseAge)
	assert.Equal(t, 350000.0, p.TargetPropertyPrice)

	env.mustRun(t, "--user", "bob", "profile", "delete")
	assert.Empty(t, env.snapshot(t).Profiles)
}

func TestProfileSetup_InputEndsEarly(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "Bob\n28\n", "--user", "bob", "profile", "setup")
	require.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out, "Age when buying")
	assert.Empty(t, env.snapshot(t).Profiles)
}

func TestLedgerCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "--user", "carol", "ledger", "init", "--balance", "1000")
	env.mustRun(t, "--user", "carol", "ledger", "add", "--type", "income", "--category", "salary", "--amount", "3000", "--date", "2024-05-01")
	env.mustRun(t, "--user", "carol", "ledger", "add", "--category", "food", "--amount", "120.5", "--date", "2024-05-02")

	snap := env.snapshot(t)
	require.Len(t, snap.Accounts, 1)
	account := snap.Accounts[0]
	require.Len(t, account.Transactions, 2)
	assert.InDelta(t, 3879.5, account.Balance, 1e-9)

	out := env.mustRun(t, "--user", "carol", "ledger", "show", "--category", "food")
	assert.Contains(t, out, "Food")
	assert.NotContains(t, out, "Salary")

	env.mustRun(t, "--user", "carol", "ledger", "remove", account.Transactions[1].ID)
	snap = env.snapshot(t)
	assert.Len(t, snap.Accounts[0].Transactions, 1)
	assert.InDelta(t, 4000.0, snap.Accounts[0].Balance, 1e-9)

	env.mustRun(t, "--user", "carol", "ledger", "balance", "50")
	out = env.mustRun(t, "--user", "carol", "ledger", "show")
	assert.Contains(t, out, "differs from transactions")

	_, err := env.run(t, "", "--user", "carol", "ledger", "remove", "missing")
	require.Error(t, err)

	_, err = env.run(t, "", "--user", "carol", "ledger", "clear")
	require.Error(t, err)
	env.mustRun(t, "--user", "carol", "ledger", "clear", "--force")
	assert.Empty(t, env.snapshot(t).Accounts)
}

func TestLedgerAdd_UnknownCategory(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "ledger", "add", "--category", "yachts", "--amount", "1")
	require.Error(t, err)
	assert.Contains(t, cliMessage(err), "unknown category")
}

func TestSimulate(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("DREAMBUILDER_SIMULATION_SEED", "7")
	env.setReferenceProfile(t, "dave")

	out := env.mustRun(t, "--user", "dave", "simulate", "--months", "3", "--quiet")
	assert.Contains(t, out, "Simulated 3 month(s)")

	snap := env.snapshot(t)
	require.Len(t, snap.Accounts, 1)
	account := snap.Accounts[0]
	assert.NotEmpty(t, account.Transactions)
	require.Len(t, snap.Profiles, 1)
	assert.InDelta(t, account.Balance, snap.Profiles[0].Wealth, 1e-6)
	assert.Greater(t, account.Balance, 20000.0, "three months of positive savings on top of the opening balance")

	months := make(map[string]bool)
	for _, txn := range account.Transactions {
		months[txn.Date.Format("2006-01")] = true
	}
	assert.Len(t, months, 3)
}

func TestSimulate_WithoutProfile(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "simulate")
	require.Error(t, err)
	assert.Contains(t, cliMessage(err), "profile setup")
}

func TestRecurring(t *testing.T) {
	now := time.Now()
	if now.Day() > 28 {
		t.Skip("last month may not have today's day")
	}
	env := newCLIEnv(t)
	lastMonth := now.AddDate(0, -1, 0).Format("2006-01-02")
	env.mustRun(t, "--user", "erin", "ledger", "add", "--category", "housing", "--amount", "900", "--date", lastMonth, "--recurring")

	out := env.mustRun(t, "--user", "erin", "recurring")
	assert.Contains(t, out, "Housing")

	out = env.mustRun(t, "--user", "erin", "recurring")
	assert.Contains(t, out, "Nothing due today")

	out = env.mustRun(t, "recurring", "--all")
	assert.Contains(t, out, "Booked 0 transaction(s) across 1 user(s)")

	snap := env.snapshot(t)
	require.Len(t, snap.Accounts, 1)
	require.Len(t, snap.Accounts[0].Transactions, 2)
	assert.Equal(t, snap.Accounts[0].Transactions[0].ID, snap.Accounts[0].Transactions[1].SourceID)
}

func TestExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "--user", "frank", "ledger", "add", "--type", "income", "--category", "salary", "--amount", "3000", "--date", "2024-05-01")
	env.mustRun(t, "--user", "frank", "ledger", "add", "--category", "food", "--amount", "80", "--date", "2024-05-03")

	file := filepath.Join(t.TempDir(), "statement.ofx")
	env.mustRun(t, "--user", "frank", "export", "-o", file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "STMTTRN")

	out := env.mustRun(t, "--user", "grace", "import", "--dry-run", file)
	assert.Contains(t, out, "Dry run: 2 new")

	env.mustRun(t, "--user", "grace", "import", file)
	out = env.mustRun(t, "--user", "grace", "import", file)
	assert.Contains(t, out, "Nothing new to import")

	snap := env.snapshot(t)
	var grace []string
	for _, a := range snap.Accounts {
		if a.UserID == "grace" {
			assert.InDelta(t, 2920.0, a.Balance, 1e-9)
			for _, txn := range a.Transactions {
				grace = append(grace, string(txn.Category))
			}
		}
	}
	assert.ElementsMatch(t, []string{"SALARY", "FOOD"}, grace)

	out = env.mustRun(t, "backup", "list")
	assert.Contains(t, out, "auto-import")
}

func TestExport_FiltersByDate(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "ledger", "add", "--category", "food", "--amount", "10", "--date", "2024-04-30", "--description", "april")
	env.mustRun(t, "ledger", "add", "--category", "food", "--amount", "20", "--date", "2024-05-31", "--description", "may")

	out := env.mustRun(t, "export", "--from", "2024-05-01", "--to", "2024-05-31")
	assert.Contains(t, out, "may")
	assert.NotContains(t, out, "april")

	_, err := env.run(t, "", "export", "--from", "May 1st")
	require.Error(t, err)
}

func TestBackupRestore(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "ledger", "init", "--balance", "100")
	env.mustRun(t, "backup", "create", "--tag", "before")
	env.mustRun(t, "ledger", "balance", "999")

	out, err := env.run(t, "n\n", "backup", "restore", "before")
	require.NoError(t, err)
	assert.Contains(t, out, "Restore cancelled")
	assert.Equal(t, 999.0, env.snapshot(t).Accounts[0].Balance)

	env.mustRun(t, "backup", "restore", "before", "--force")
	assert.Equal(t, 100.0, env.snapshot(t).Accounts[0].Balance)

	out = env.mustRun(t, "backup", "list")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "manual")

	_, err = env.run(t, "", "backup", "delete", "nope", "--force")
	require.Error(t, err)
	env.mustRun(t, "backup", "delete", "before", "--force")
	out = env.mustRun(t, "backup", "list")
	assert.Contains(t, out, "No backups found")
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		expected string
		size     int64
	}{
		{expected: "512 B", size: 512},
		{expected: "1.0 KB", size: 1024},
		{expected: "1.5 MB", size: 1536 * 1024},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFileSize(tt.size))
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", formatRelativeTime(now))
	assert.Equal(t, "5 minutes ago", formatRelativeTime(now.Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "1 hour ago", formatRelativeTime(now.Add(-61*time.Minute)))
	assert.Equal(t, "yesterday", formatRelativeTime(now.Add(-30*time.Hour)))
	old := now.AddDate(0, 0, -30)
	assert.Equal(t, old.Format("2006-01-02 15:04"), formatRelativeTime(old))
}
