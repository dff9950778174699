package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/observability"
	"github.com/jonathan/jobly/internal/pipeline"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var (
		source string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new postings from digest emails and the GitHub feed",
		Long:  "Fetch reads the configured sources, extracts postings and stores the ones not seen before as discovered jobs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := parseSources(source)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			in, err := a.ingester(ctx, names)
			if err != nil {
				return err
			}
			res, err := in.Run(ctx, pipeline.IngestOptions{
				Sources: names,
				DryRun:  dryRun,
				OnProgress: func(e pipeline.ProgressEvent) {
					a.logger.Debug("fetch_progress",
						zap.String("step", e.Step),
						zap.String("source", e.Source),
						zap.String("message", e.Message),
						zap.Int("count", e.Count),
					)
				},
			})
			if err != nil {
				return err
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintIngest(res, dryRun)
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "all", "Source to fetch: github, gmail or all")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and print postings without storing them")
	return cmd
}
