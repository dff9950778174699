package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/schemas"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and check required files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(root)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			problems := printConfig(cmd.OutOrStdout(), cfg)
			if problems > 0 {
				return fmt.Errorf("%d configuration problem(s) found", problems)
			}
			return nil
		},
	}
}

// printConfig writes the resolved configuration and file checks, returning
// the number of failed checks. Optional files only warn.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func printConfig(out io.Writer, cfg *config.Config) int {
	file := cfg.File
	if file == "" {
		file = "(none, using defaults)"
	}
	fmt.Fprintf(out, "Config file:   %s\n", file)
	fmt.Fprintf(out, "Store:         %s\n", redact(cfg.StoreDSN()))
	if cfg.RedisURL != "" {
		fmt.Fprintf(out, "Events:        %s\n", redact(cfg.RedisURL))
	}
	fmt.Fprintf(out, "Feed:          %s\n", cfg.Feed.ReadmeURL)
	fmt.Fprintf(out, "Gmail sender:  %s\n", cfg.Gmail.SenderFilter)
	fmt.Fprintf(out, "Min score:     %.2f\n", cfg.Filter.MinScore)
	fmt.Fprintf(out, "Keywords:      %s\n", strings.Join(cfg.Filter.TitleKeywords, ", "))
	fmt.Fprintf(out, "Watch:         %v every %s\n", cfg.Watch.Sources, cfg.Watch.Interval)
	fmt.Fprintf(out, "Artifacts:     %s\n", cfg.Paths.ArtifactsDir)
	fmt.Fprintln(out)

	problems := 0
	check := func(ok bool, required bool, label, detail string) {
		switch {
		case ok:
			fmt.Fprintf(out, "✓ %s\n", label)
		case required:
			problems++
			fmt.Fprintf(out, "✗ %s: %s\n", label, detail)
		default:
			fmt.Fprintf(out, "⚠ %s: %s\n", label, detail)
		}
	}

	if err := schemas.ValidateFile(schemas.Profile, cfg.Paths.Profile); err != nil {
		check(false, true, "profile "+cfg.Paths.Profile, err.Error())
	} else if _, err := config.LoadProfile(cfg.Paths.Profile); err != nil {
		check(false, true, "profile "+cfg.Paths.Profile, err.Error())
	} else {
		check(true, true, "profile "+cfg.Paths.Profile, "")
	}

	_, err := cfg.Resume("")
	check(err == nil, true, "resume", errText(err))
	for name, path := range cfg.Paths.ResumeVariants {
		_, statErr := os.Stat(path)
		check(statErr == nil, false, "resume variant "+name, "not found: "+path)
	}

	_, credErr := os.Stat(cfg.Paths.Credentials)
	check(credErr == nil, false, "gmail credentials", "not found: "+cfg.Paths.Credentials)
	_, tokErr := os.Stat(cfg.Paths.Token)
	check(tokErr == nil, false, "gmail token", "not found: "+cfg.Paths.Token)

	if cfg.LLM.Enabled {
		check(cfg.LLM.APIKey != "", false, "llm api key ("+cfg.LLM.Model+")", "GEMINI_API_KEY is not set; reviews are skipped")
	}
	return problems
}

// redact hides the password in a connection URL.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return dsn[:scheme+3] + user + ":****" + dsn[at:]
	}
	return dsn
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
