package main

import (
	"context"
	"fmt"

	"agritrace/internal/models"

	"github.com/spf13/cobra"
)

func demoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Manage synthetic expense data",
	}
	cmd.AddCommand(
		demoSubcommand("init", "Seed demo expenses when the ledger is empty",
			func(ctx context.Context, a *app) (*models.DemoSummary, error) {
				return a.services.Ledger.InitDemoData(ctx)
			}),
		demoSubcommand("refresh", "Replace every expense with a fresh demo set",
			func(ctx context.Context, a *app) (*models.DemoSummary, error) {
				return a.services.Ledger.RefreshDemoData(ctx)
			}),
	)
	return cmd
}

func demoSubcommand(use, short string, run func(context.Context, *app) (*models.DemoSummary, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := commonRun()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := run(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (total %.0f, crops %d)\n",
				summary.Message, summary.TotalExpenses, len(summary.Crops))
			return nil
		},
	}
}
