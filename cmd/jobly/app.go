package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/llm"
	"github.com/jonathan/jobly/internal/logger"
	"github.com/jonathan/jobly/internal/notify"
	"github.com/jonathan/jobly/internal/pipeline"
	"github.com/jonathan/jobly/internal/scoring"
	"github.com/jonathan/jobly/internal/sources"
)

// app holds what every command needs once configuration is resolved.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *db.DB
	publisher notify.Publisher
}

// loadConfig resolves configuration and builds the logger without opening
// the store.
func loadConfig(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	logFile := ""
	if cfg.Paths.LogDir != "" {
		logFile = filepath.Join(cfg.Paths.LogDir, "jobly.log")
	}
	log, err := logger.New(opts.jsonLogs, opts.debug, logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// newApp loads configuration and opens the store and event publisher.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx, cfg.StoreDSN())
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	publisher, err := notify.Open(ctx, cfg.RedisURL)
	if err != nil {
		// Events are advisory; a missing Redis never blocks the pipeline.
		log.Warn("event_publisher_unavailable", zap.Error(err))
		publisher = notify.Nop{}
	}

	return &app{cfg: cfg, logger: log, store: store, publisher: publisher}, nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return errors.Join(a.publisher.Close(), a.store.Close())
}

// scoringConfig maps the filter section onto scoring inputs. A non-negative
// minScore overrides the configured threshold.
func (a *app) scoringConfig(minScore float64) scoring.Config {
	f := a.cfg.Filter
	cfg := scoring.Config{
		TitleKeywords:      f.TitleKeywords,
		MinScore:           f.MinScore,
		PreferredATS:       f.PreferredATS,
		PreferredLocations: f.PreferredLocations,
		ExcludedLocations:  f.ExcludedLocations,
	}
	if len(cfg.TitleKeywords) == 0 {
		cfg.TitleKeywords = scoring.DefaultTitleKeywords()
	}
	if minScore >= 0 {
		cfg.MinScore = minScore
	}
	return cfg
}

// minScoreFlag returns the --min-score override, or -1 when the flag was not
// set so the configured threshold applies.
func minScoreFlag(cmd *cobra.Command, v float64) (float64, error) {
	if !cmd.Flags().Changed("min-score") {
		return -1, nil
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("--min-score must be between 0 and 1, got %.2f", v)
	}
	return v, nil
}

func (a *app) queuer(minScore float64) *pipeline.Queuer {
	return pipeline.NewQueuer(a.store, a.scoringConfig(minScore), a.publisher, a.logger)
}

// ingester builds an Ingester with only the sources that are requested, so
// Gmail credentials are never read for a github-only fetch.
func (a *app) ingester(ctx context.Context, names []string) (*pipeline.Ingester, error) {
	opts := []pipeline.IngesterOption{
		pipeline.WithPublisher(a.publisher),
		pipeline.WithLogger(a.logger),
	}
	for _, name := range names {
		switch name {
		case pipeline.SourceGitHub:
			skip := make([]ats.Type, 0, len(a.cfg.Feed.SkipATS))
			for _, s := range a.cfg.Feed.SkipATS {
				skip = append(skip, ats.Parse(s))
			}
			feed := sources.NewReadme(a.cfg.Feed.ReadmeURL, a.cfg.Filter.TitleKeywords, skip,
				sources.WithReadmeLogger(a.logger))
			opts = append(opts, pipeline.WithFeedSource(feed))
		case pipeline.SourceGmail:
			client, err := sources.NewMailClient(ctx, a.cfg.Paths.Credentials, a.cfg.Paths.Token)
			if err != nil {
				return nil, err
			}
			g := a.cfg.Gmail
			mail := sources.NewGmail(client, sources.GmailOptions{
				SenderFilter:  g.SenderFilter,
				SubjectFilter: g.SubjectFilter,
				LookbackDays:  g.LookbackDays,
				MaxResults:    int64(g.MaxResults),
			}, a.logger)
			opts = append(opts, pipeline.WithEmailSource(mail))
		}
	}
	return pipeline.NewIngester(a.store, opts...), nil
}

// evaluator returns the LLM evaluator, or nil when it is disabled or has no
// API key. The returned close func is always safe to call.
func (a *app) evaluator(ctx context.Context) (*llm.Evaluator, func()) {
	nop := func() {}
	if !a.cfg.LLM.Enabled {
		return nil, nop
	}
	client, err := llm.NewClient(ctx, llm.NewConfig(a.cfg.LLM.Model, a.cfg.LLM.MaxTokens), a.cfg.LLM.APIKey)
	if err != nil {
		if errors.Is(err, llm.ErrNoAPIKey) {
			a.logger.Warn("llm_api_key_missing")
		} else {
			a.logger.Warn("llm_client_failed", zap.Error(err))
		}
		return nil, nop
	}
	return llm.NewEvaluator(client, a.logger), func() { _ = client.Close() }
}

// parseSources expands a --source value into source names in processing order.
func parseSources(s string) ([]string, error) {
	switch s {
	case "", "all":
		return []string{pipeline.SourceGitHub, pipeline.SourceGmail}, nil
	case pipeline.SourceGitHub, pipeline.SourceGmail:
		return []string{s}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want github, gmail or all)", s)
	}
}
