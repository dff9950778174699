package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/observability"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show job and application counts and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			jobs, err := a.store.CountJobsByStatus(ctx)
			if err != nil {
				return err
			}
			apps, err := a.store.CountApplicationsByStatus(ctx)
			if err != nil {
				return err
			}
			recent, err := a.store.ListRuns(ctx, runs)
			if err != nil {
				return err
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintStatus(jobs, apps, recent)
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of recent runs to show")
	return cmd
}
