package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/dreambuilder/internal/cli"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/spf13/cobra"
)

func simulateCmd() *cobra.Command {
	var months int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate months of bank activity",
		Long: `Generate a plausible month of income and spending around your profile's budget,
append it to your ledger and update your savings. Each month starts after the
latest transaction, so repeated runs continue where the last one stopped.

State is saved after every month; interrupting keeps completed months.`,
		Example: `  # Simulate the next month
  dreambuilder simulate

  # Simulate two years with a fixed seed
  DREAMBUILDER_SIMULATION_SEED=42 dreambuilder simulate --months 24`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 {
				return common.NewUserError("--months must be at least 1", common.ErrInvalidInput)
			}

			st, err := openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.requireProfile(cmd.Context())
			if err != nil {
				return err
			}
			// A first simulation opens the account with the savings the user declared.
			if _, ok := st.ledger.Account(st.user()); !ok {
				st.ledger.InitializeAccount(st.user(), p.Wealth)
			}

			out := cmd.OutOrStdout()
			handler := cli.NewInterruptHandler(out)
			ctx := handler.Watch(cmd.Context(), months)
			defer handler.Stop()

			sim := st.newSimulator()
			var progress *cli.MonthProgress
			if months > 1 {
				progress = cli.NewMonthProgress(out, months)
			}

			completed := 0
			for completed < months {
				if ctx.Err() != nil {
					break
				}

				res, err := sim.SimulateNextMonth(ctx, st.user())
				if err != nil {
					return common.CalculationError(err)
				}
				if res == nil {
					break
				}
				if err := st.save(context.WithoutCancel(ctx), "simulate "+cli.FormatMonth(res.Month)); err != nil {
					return err
				}
				completed++
				handler.MonthSaved()

				if progress != nil {
					progress.Advance()
				}
				if !quiet {
					fmt.Fprintln(out, cli.RenderMonth(res))
				}
			}

			if handler.WasInterrupted() {
				handler.Stop()
				slog.Info("Simulation interrupted", "completed", completed, "requested", months)
				return nil
			}

			if p, err = st.requireProfile(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Simulated %d month(s); savings now %s", completed, cli.FormatMoney(p.Wealth))))
			return nil
		},
	}

	cmd.Flags().IntVarP(&months, "months", "n", 1, "number of months to simulate")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the summary")
	return cmd
}
