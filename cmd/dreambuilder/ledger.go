package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/dreambuilder/internal/cli"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/scheduler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and edit your mocked bank account",
		Example: `  # Open the account with your current savings
  dreambuilder ledger init --balance 20000

  # Record rent on the 3rd of every month
  dreambuilder ledger add --type expense --category housing --amount 1200 --recurring --day 3

  # Show food spending
  dreambuilder ledger show --category food`,
	}

	cmd.AddCommand(showLedgerCmd())
	cmd.AddCommand(initLedgerCmd())
	cmd.AddCommand(addTransactionCmd())
	cmd.AddCommand(removeTransactionCmd())
	cmd.AddCommand(setBalanceCmd())
	cmd.AddCommand(clearLedgerCmd())

	return cmd
}

func showLedgerCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the account and its transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			account, ok := st.ledger.Account(st.user())
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No account yet. Run dreambuilder ledger init to open one."))
				return nil
			}

			if category == "" {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccount(account))
				return nil
			}

			c, valid := model.ParseCategory(category)
			if !valid {
				return unknownCategory(category)
			}
			var txns []model.Transaction
			for _, txn := range account.Transactions {
				if txn.Category == c {
					txns = append(txns, txn)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransactions(txns))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only show this category")
	return cmd
}

func initLedgerCmd() *cobra.Command {
	var balance float64

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Open the account (no-op when it exists)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if !cmd.Flags().Changed("balance") {
				if p, err := st.profiles.Get(ctx, st.user()); err == nil {
					balance = p.Wealth
				}
			}

			account := st.ledger.InitializeAccount(st.user(), balance)
			if err := st.save(ctx, "ledger init"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Account %s holds %s", account.ID, cli.FormatMoney(account.Balance))))
			return nil
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 0, "opening balance (default: profile savings)")
	return cmd
}

func addTransactionCmd() *cobra.Command {
	var (
		txType      string
		category    string
		amount      float64
		description string
		date        string
		recurring   bool
		day         int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			c, valid := model.ParseCategory(category)
			if !valid {
				return unknownCategory(category)
			}

			when, err := parseDay(date, st.loc)
			if err != nil {
				return err
			}
			if when.IsZero() {
				when = st.clock.Now()
			}
			if recurring && day == 0 {
				day = when.Day()
			}

			txn := model.Transaction{
				ID:           uuid.NewString(),
				UserID:       st.user(),
				Type:         model.TransactionType(strings.ToUpper(txType)),
				Category:     c,
				Amount:       amount,
				Date:         when,
				Description:  description,
				IsRecurring:  recurring,
				RecurringDay: day,
			}
			if txn.Description == "" {
				txn.Description = c.Label()
			}

			if err := st.ledger.AddTransaction(st.user(), txn); err != nil {
				return err
			}
			if err := st.save(ctx, "ledger add"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Added transaction "+txn.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&txType, "type", "t", "expense", "income or expense")
	cmd.Flags().StringVarP(&category, "category", "c", string(model.CategoryOther), "transaction category")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "amount (non-negative)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description (default: category name)")
	cmd.Flags().StringVar(&date, "date", "", "booking date YYYY-MM-DD (default: now)")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "repeat every month")
	cmd.Flags().IntVar(&day, "day", 0, "day of month for recurring transactions (default: booking day)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func removeTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <transaction-id>",
		Short: "Remove a transaction and reverse its amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if !st.ledger.RemoveTransaction(st.user(), args[0]) {
				return common.NewUserError("no transaction "+args[0], common.ErrNotFound)
			}
			if err := st.save(ctx, "ledger remove"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed transaction "+args[0]))
			return nil
		},
	}
}

func setBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <amount>",
		Short: "Overwrite the account balance",
		Long: `Overwrite the balance without recording a transaction. The balance may then
differ from the sum of the transactions; ledger show flags the difference.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			balance, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return common.NewUserError("balance must be a number", err)
			}

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			st.ledger.UpdateBalance(st.user(), balance)
			if err := st.save(ctx, "ledger balance"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Balance set to "+cli.FormatMoney(balance)))
			return nil
		},
	}
}

func clearLedgerCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the account and every transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !force {
				return common.NewUserError("this deletes every transaction; pass --force to confirm", common.ErrInvalidInput)
			}

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if !st.ledger.ClearUser(st.user()) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Nothing to clear"))
				return nil
			}
			if err := st.save(ctx, "ledger clear"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Ledger cleared"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the safety check")
	return cmd
}

func recurringCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Book today's recurring transactions",
		Long: `Re-book every recurring transaction scheduled for today's day of the month.
Running it again on the same day books nothing new.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if all {
				summary := scheduler.New(st.ledger, scheduler.WithLocation(st.loc)).RunOnce(ctx)
				if summary.Emitted > 0 {
					if err := st.save(ctx, "recurring"); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Booked %d transaction(s) across %d user(s)", summary.Emitted, summary.Users)))
				if summary.Failed > 0 {
					return fmt.Errorf("%d user(s) failed", summary.Failed)
				}
				return nil
			}

			emitted, err := st.ledger.ProcessMonthlyRecurringTransactions(st.user())
			if err != nil {
				return err
			}
			if len(emitted) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("Nothing due today"))
				return nil
			}
			if err := st.save(ctx, "recurring"); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.RenderTransactions(emitted))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "process every user")
	return cmd
}

func unknownCategory(s string) error {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = strings.ToLower(string(c))
	}
	return common.NewUserError(
		fmt.Sprintf("unknown category %q (choose from %s)", s, strings.Join(names, ", ")),
		common.ErrInvalidInput)
}
