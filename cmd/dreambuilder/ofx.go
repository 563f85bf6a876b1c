package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/dreambuilder/internal/cli"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/ofx"
	"github.com/Veraticus/dreambuilder/internal/storage"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var from, to, output, currency string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as an OFX bank statement",
		Example: `  # Everything, to stdout
  dreambuilder export

  # One year into a file
  dreambuilder export --from 2024-01-01 --to 2024-12-31 -o statement.ofx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			account, ok := st.ledger.Account(st.user())
			if !ok {
				return common.NewUserError(fmt.Sprintf("no account for %q", st.user()), common.ErrNotFound)
			}

			start, err := parseDay(from, st.loc)
			if err != nil {
				return err
			}
			end, err := parseDay(to, st.loc)
			if err != nil {
				return err
			}
			if !end.IsZero() {
				// --to includes the whole day
				end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			exporter := ofx.NewExporter()
			exporter.Currency = currency
			if err := exporter.Export(w, account, start, end, st.clock.Now()); err != nil {
				return err
			}

			if output != "" {
				slog.Info("Exported OFX statement", "user_id", st.user(), "file", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default: first transaction)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&currency, "currency", "USD", "statement currency")
	return cmd
}

func importCmd() *cobra.Command {
	var dryRun, noBackup bool

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX statements exported by your bank into the
ledger. Transactions already in the ledger (same id) are skipped.`,
		Example: `  # Import a single file
  dreambuilder import ~/Downloads/checking_jan_2024.qfx

  # Import every statement in a directory
  dreambuilder import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			existing := make(map[string]bool)
			if account, ok := st.ledger.Account(st.user()); ok {
				for _, txn := range account.Transactions {
					existing[txn.ID] = true
				}
			}

			parser := ofx.NewParser()
			var imported []model.Transaction
			skipped := 0
			for _, file := range files {
				txns, err := parseOFXFile(cmd, parser, file, st.user())
				if err != nil {
					return err
				}
				for _, txn := range txns {
					if existing[txn.ID] {
						skipped++
						continue
					}
					existing[txn.ID] = true
					imported = append(imported, txn)
				}
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, cli.RenderTransactions(imported))
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d new, %d already present", len(imported), skipped)))
				return nil
			}
			if len(imported) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Nothing new to import (%d already present)", skipped)))
				return nil
			}

			if !noBackup {
				backupBeforeChange(ctx, st, "import")
			}

			if err := st.ledger.AddTransactions(st.user(), imported...); err != nil {
				return err
			}
			if err := st.save(ctx, "import"); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transaction(s) from %d file(s), skipped %d", len(imported), len(files), skipped)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "preview import without saving")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the automatic backup")
	return cmd
}

func parseOFXFile(cmd *cobra.Command, parser *ofx.Parser, file, userID string) ([]model.Transaction, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	txns, err := parser.ParseFile(cmd.Context(), f, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return txns, nil
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

// backupBeforeChange takes an automatic backup. Failures are logged only.
func backupBeforeChange(ctx context.Context, st *state, prefix string) {
	manager, err := storage.NewBackupManager(st.store)
	if errors.Is(err, storage.ErrInMemoryBackup) {
		return
	}
	if err == nil {
		var info *storage.BackupInfo
		if info, err = manager.AutoBackup(ctx, prefix); err == nil {
			slog.Info("Created automatic backup", "backup", info.ID)
			return
		}
	}
	slog.Warn("Automatic backup failed", "error", err)
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return t, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return t, nil
}
