package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/apply"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/observability"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		limit   int
		skipLLM bool
		resume  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Work through queued applications in the browser",
		Long:  "Run opens each queued application, fills it from your profile, stops at the review page and submits only after you type YES.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			profile, err := config.LoadProfile(a.cfg.Paths.Profile)
			if err != nil {
				return err
			}
			resumePath, err := a.cfg.Resume(resume)
			if err != nil {
				return err
			}

			opts := []apply.RunnerOption{
				apply.WithArtifactsDir(a.cfg.Paths.ArtifactsDir),
				apply.WithPublisher(a.publisher),
				apply.WithLogger(a.logger),
			}
			if !skipLLM {
				evaluator, closeLLM := a.evaluator(ctx)
				defer closeLLM()
				opts = append(opts, apply.WithEvaluator(evaluator))
			}

			b := a.cfg.Browser
			browser := apply.SessionFactory(apply.SessionConfig{
				Headless: b.Headless,
				Timeout:  b.Timeout,
				ExecPath: b.ExecPath,
			}, a.logger)

			out := cmd.OutOrStdout()
			printer := observability.NewPrinter(out)
			runner := apply.NewRunner(a.store, browser, newPrompter(cmd.InOrStdin(), out), opts...)
			res, err := runner.Run(ctx, apply.RunOptions{
				Limit:      limit,
				Profile:    profile,
				Resume:     resumePath,
				SkipLLM:    skipLLM,
				MinWait:    b.MinWait,
				MaxWait:    b.MaxWait,
				OnProgress: progressPrinter(out, printer),
			})
			if err != nil {
				return err
			}
			printer.PrintRun(res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum applications to process (0 for all)")
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip the LLM review and answer suggestions")
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "Resume variant from paths.resume_variants")
	return cmd
}

// progressPrinter renders runner events.
func progressPrinter(out io.Writer, printer *observability.Printer) func(apply.RunEvent) {
	return func(e apply.RunEvent) {
		switch e.Step {
		case apply.StepStart:
			printer.PrintJob(e.Job, e.Index, e.Total)
		case apply.StepOpened:
			fmt.Fprintln(out, "🌐 Page loaded, filling form...")
		case apply.StepFilled:
			printer.PrintFill(e.Fill)
		case apply.StepDone:
			fmt.Fprintf(out, "→ %s\n\n", e.Outcome)
		}
	}
}
