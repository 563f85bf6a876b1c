package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/dreambuilder/internal/cli"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your financial profile",
		Long: `Show, edit, or delete the financial profile used by afford, plan and simulate.
Profiles belong to the user selected with --user.`,
		Example: `  # Answer a few questions
  dreambuilder profile setup

  # Change a single figure
  dreambuilder profile set --income 5200

  # Show the current profile
  dreambuilder profile show`,
	}

	cmd.AddCommand(showProfileCmd())
	cmd.AddCommand(setProfileCmd())
	cmd.AddCommand(setupProfileCmd())
	cmd.AddCommand(deleteProfileCmd())

	return cmd
}

func showProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.requireProfile(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderProfile(p))
			if p.TargetPropertyPrice > 0 {
				return cli.RenderDownPaymentProgress(out, st.engine.DownPaymentProgress(p.Wealth, p.TargetPropertyPrice))
			}
			return nil
		},
	}
}

func setProfileCmd() *cobra.Command {
	var flags profileFlags
	var name string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile figures from flags",
		Long:  `Update the figures passed as flags, creating the profile if needed. Other figures are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.profiles.Get(ctx, st.user())
			if err != nil {
				p = model.UserProfile{ID: st.user()}
			}
			p = flags.apply(cmd.Flags(), p)
			if cmd.Flags().Changed("name") {
				p.Name = name
			}
			p.UpdatedAt = st.clock.Now()

			if err := st.profiles.Save(ctx, p); err != nil {
				return err
			}
			if err := st.save(ctx, "profile set"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Profile saved"))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProfile(p))
			return nil
		},
	}

	flags.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func setupProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create or edit the profile interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			current, err := st.profiles.Get(ctx, st.user())
			if err != nil {
				current = model.UserProfile{ID: st.user(), Name: st.user(), SavingRate: 0.2}
			}

			prompter := cli.NewProfilePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			p, err := prompter.PromptProfile(ctx, current)
			if errors.Is(err, cli.ErrPromptCancelled) {
				return common.NewUserError("setup cancelled; profile unchanged", err)
			}
			if err != nil {
				return err
			}
			p.UpdatedAt = st.clock.Now()

			if err := st.profiles.Save(ctx, p); err != nil {
				return err
			}
			if err := st.save(ctx, "profile setup"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Profile saved"))
			return nil
		},
	}
}

func deleteProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the profile (the ledger is kept)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.profiles.Delete(ctx, st.user()); err != nil {
				return err
			}
			if err := st.save(ctx, "profile delete"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Profile %s deleted", st.user())))
			return nil
		},
	}
}
