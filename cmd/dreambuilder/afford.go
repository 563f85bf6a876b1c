package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/cli"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// profileFlags lets a calculation override any figure from the stored profile.
type profileFlags struct {
	age, purchaseAge                int
	savings, income, expenses, rate float64
	target                          float64
}

func (f *profileFlags) register(flags *pflag.FlagSet, withTarget bool) {
	flags.IntVar(&f.age, "age", 0, "current age")
	flags.IntVar(&f.purchaseAge, "purchase-age", 0, "age at purchase")
	flags.Float64Var(&f.savings, "savings", 0, "current savings")
	flags.Float64Var(&f.income, "income", 0, "monthly net income")
	flags.Float64Var(&f.expenses, "expenses", 0, "monthly expenses")
	flags.Float64Var(&f.rate, "saving-rate", 0, "share of income saved each month (0-1)")
	if withTarget {
		flags.Float64Var(&f.target, "target", 0, "target property price")
	}
}

var profileFlagNames = []string{"age", "purchase-age", "savings", "income", "expenses", "saving-rate", "target"}

// anySet reports whether the user passed at least one profile figure.
func (f *profileFlags) anySet(flags *pflag.FlagSet) bool {
	for _, name := range profileFlagNames {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			return true
		}
	}
	return false
}

// apply overlays every flag the user set on p.
func (f *profileFlags) apply(flags *pflag.FlagSet, p model.UserProfile) model.UserProfile {
	if flags.Changed("age") {
		p.Age = f.age
	}
	if flags.Changed("purchase-age") {
		p.PurchaseAge = f.purchaseAge
	}
	if flags.Changed("savings") {
		p.Wealth = f.savings
	}
	if flags.Changed("income") {
		p.NetIncome = f.income
	}
	if flags.Changed("expenses") {
		p.Expenses = f.expenses
	}
	if flags.Changed("saving-rate") {
		p.SavingRate = f.rate
	}
	if flags.Lookup("target") != nil && flags.Changed("target") {
		p.TargetPropertyPrice = f.target
	}
	return p
}

// baseProfile returns the stored profile, or an empty one when flags alone
// describe the calculation.
func baseProfile(ctx context.Context, st *state, overrides bool) (model.UserProfile, error) {
	p, err := st.profiles.Get(ctx, st.user())
	if err == nil {
		return p, nil
	}
	if errors.Is(err, common.ErrProfileNotFound) && overrides {
		return model.UserProfile{ID: st.user()}, nil
	}
	if errors.Is(err, common.ErrProfileNotFound) {
		return p, common.NewUserError(
			fmt.Sprintf("no profile for %q; pass the figures as flags or run `dreambuilder profile setup`", st.user()), err)
	}
	return p, err
}

func affordCmd() *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "afford",
		Short: "Show the most expensive property you can afford",
		Long: `Project your savings until the purchase age and add the largest mortgage
your income can carry. Figures come from your profile; any flag overrides it.`,
		Example: `  # Use the stored profile
  dreambuilder afford

  # Try a what-if without touching the profile
  dreambuilder afford --income 6000 --saving-rate 0.4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := baseProfile(ctx, st, flags.anySet(cmd.Flags()))
			if err != nil {
				return err
			}
			in := affordability.InputFromProfile(flags.apply(cmd.Flags(), p))
			if err := in.Validate(); err != nil {
				return err
			}

			res := st.engine.CalculateMaxAffordableProperty(in)
			if err := res.Check(); err != nil {
				return common.CalculationError(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAffordability(res))
			return nil
		},
	}

	flags.register(cmd.Flags(), false)
	return cmd
}

func planCmd() *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how long it takes to save for a target property",
		Long: `Work backwards from a target property price: how much you must save on top
of the largest mortgage your income carries, and how many months that takes.`,
		Example: `  dreambuilder plan --target 400000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := baseProfile(ctx, st, flags.anySet(cmd.Flags()))
			if err != nil {
				return err
			}
			p = flags.apply(cmd.Flags(), p)
			if p.TargetPropertyPrice <= 0 {
				return common.NewUserError("no target property price; pass --target or set one in your profile", common.ErrInvalidInput)
			}

			in := affordability.PlanInputFromProfile(p)
			if err := in.Validate(); err != nil {
				return err
			}

			res := st.engine.CalculateSavingsPlan(in)
			if err := res.Check(); err != nil {
				return common.CalculationError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderPlan(res))
			return cli.RenderDownPaymentProgress(out, st.engine.DownPaymentProgress(in.CurrentSavings, in.TargetPropertyPrice))
		},
	}

	flags.register(cmd.Flags(), true)
	return cmd
}
