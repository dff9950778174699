package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/observability"
)

func newQueueCmd(root *rootOptions) *cobra.Command {
	var (
		minScore float64
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Score discovered jobs and queue the ones that fit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minScore, err := minScoreFlag(cmd, minScore)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			q := a.queuer(minScore)
			plan, err := q.Plan(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			observability.NewPrinter(out).PrintPlan(plan)
			if len(plan.Jobs) == 0 {
				return nil
			}

			if !yes {
				ok, err := newPrompter(cmd.InOrStdin(), out).confirm(
					fmt.Sprintf("Queue %d and filter %d jobs", len(plan.Queued()), len(plan.Filtered())))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Nothing written.")
					return nil
				}
			}

			created, err := q.Commit(ctx, plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queued %d applications.\n", created)
			return nil
		},
	}
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Override the configured minimum fit score (0-1)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Write the plan without asking")
	return cmd
}
