package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/scheduler"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		source   string
		minScore float64
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fetch and queue on an interval until interrupted",
		Long:  "Watch runs fetch followed by queue immediately and then on every interval. It never opens a browser or submits anything.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minScore, err := minScoreFlag(cmd, minScore)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			names := a.cfg.Watch.Sources
			if cmd.Flags().Changed("source") {
				if names, err = parseSources(source); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Watch.Interval
			}

			in, err := a.ingester(ctx, names)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cycle := scheduler.PipelineCycle(in, a.queuer(minScore), names, func(r scheduler.Result) {
				fmt.Fprintf(out, "%s  new %d, duplicates %d, queued %d\n",
					time.Now().Format("15:04:05"), r.Ingest.Inserted, r.Ingest.Duplicates, r.Queued)
			})

			s, err := scheduler.New(interval, cycle, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %v every %s (Ctrl+C to stop)\n", names, interval)
			return s.Run(ctx)
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Time between cycles (default from watch.interval)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source to fetch: github, gmail or all (default from watch.sources)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Override the configured minimum fit score (0-1)")
	return cmd
}
