// Package pipeline orchestrates ingestion of job sources and the scoring pass
// that queues applications.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/extract"
	"github.com/jonathan/jobly/internal/logger"
	"github.com/jonathan/jobly/internal/notify"
	"github.com/jonathan/jobly/internal/sources"
)

// Source names accepted by Ingest.
const (
	SourceGitHub = "github"
	SourceGmail  = "gmail"
)

// ProgressEvent represents a progress update during ingestion or queueing.
type ProgressEvent struct {
	Step    string `json:"step"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ProgressCallback is called when pipeline progress occurs.
type ProgressCallback func(event ProgressEvent)

// EmailSource yields digest emails not seen before.
type EmailSource interface {
	Fetch(ctx context.Context, seen map[string]bool) ([]sources.Email, error)
}

// FeedSource yields jobs parsed from a feed document.
type FeedSource interface {
	Fetch(ctx context.Context) ([]extract.Job, error)
}

// IngestOptions holds configuration for one ingestion pass.
type IngestOptions struct {
	// Sources lists the sources to read, in processing order.
	Sources []string
	// DryRun parses everything but writes nothing.
	DryRun     bool
	OnProgress ProgressCallback
}

// IngestResult summarizes an ingestion pass.
type IngestResult struct {
	Emails       int
	EmailsFailed int
	Found        int
	Inserted     int
	Duplicates   int
	// Jobs holds every parsed job when running dry.
	Jobs []extract.Job
}

// Ingester reads job sources into the store.
type Ingester struct {
	store     *db.DB
	extractor *extract.Extractor
	email     EmailSource
	feed      FeedSource
	publisher notify.Publisher
	logger    *zap.Logger
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithEmailSource enables the gmail source.
func WithEmailSource(src EmailSource) IngesterOption {
	return func(in *Ingester) { in.email = src }
}

// WithFeedSource enables the github README source.
func WithFeedSource(src FeedSource) IngesterOption {
	return func(in *Ingester) { in.feed = src }
}

// WithPublisher sends discovery events to p.
func WithPublisher(p notify.Publisher) IngesterOption {
	return func(in *Ingester) {
		if p != nil {
			in.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IngesterOption {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// NewIngester creates an Ingester writing to store.
func NewIngester(store *db.DB, opts ...IngesterOption) *Ingester {
	in := &Ingester{
		store:     store,
		publisher: notify.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.extractor = extract.New(extract.WithLogger(in.logger))
	return in
}

func emitProgress(opts *IngestOptions, step, source, message string, count int) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{Step: step, Source: source, Message: message, Count: count})
	}
}

// Run fetches the requested sources concurrently, then extracts and stores
// their documents sequentially in source order.
func (in *Ingester) Run(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	var wantFeed, wantEmail bool
	for _, s := range opts.Sources {
		switch s {
		case SourceGitHub:
			if in.feed == nil {
				return nil, fmt.Errorf("source %q is not configured", s)
			}
			wantFeed = true
		case SourceGmail:
			if in.email == nil {
				return nil, fmt.Errorf("source %q is not configured", s)
			}
			wantEmail = true
		default:
			return nil, fmt.Errorf("unknown source %q", s)
		}
	}

	seen := map[string]bool{}
	if wantEmail {
		var err error
		if seen, err = in.store.SeenEmailIDs(ctx); err != nil {
			return nil, err
		}
	}

	var (
		feedJobs []extract.Job
		emails   []sources.Email
	)
	g, gCtx := errgroup.WithContext(ctx)
	if wantFeed {
		g.Go(func() error {
			jobs, err := in.feed.Fetch(gCtx)
			if err != nil {
				return fmt.Errorf("%s source failed: %w", SourceGitHub, err)
			}
			feedJobs = jobs
			return nil
		})
	}
	if wantEmail {
		g.Go(func() error {
			msgs, err := in.email.Fetch(gCtx, seen)
			if err != nil {
				return fmt.Errorf("%s source failed: %w", SourceGmail, err)
			}
			emails = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &IngestResult{}
	for _, s := range opts.Sources {
		var err error
		switch s {
		case SourceGitHub:
			emitProgress(&opts, "fetch", s, "parsed feed", len(feedJobs))
			err = in.storeJobs(ctx, s, feedJobs, nil, opts.DryRun, res)
		case SourceGmail:
			emitProgress(&opts, "fetch", s, "fetched emails", len(emails))
			err = in.processEmails(ctx, emails, opts.DryRun, res)
		}
		if err != nil {
			return res, err
		}
	}

	in.logger.Info("ingest_completed",
		zap.Int("found", res.Found),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Bool("dry_run", opts.DryRun),
	)
	if !opts.DryRun {
		notify.Emit(ctx, in.publisher, in.logger, notify.Event{
			Type:  notify.EventIngestCompleted,
			Count: res.Inserted,
		})
	}
	emitProgress(&opts, "store", "", "ingestion complete", res.Inserted)
	return res, nil
}

func (in *Ingester) processEmails(ctx context.Context, emails []sources.Email, dryRun bool, res *IngestResult) error {
	for _, msg := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Emails++
		log := in.logger.With(zap.String("gmail_id", msg.GmailID), zap.String("subject", msg.Subject))

		if dryRun {
			jobs := in.extractor.Extract(msg.HTML, "")
			if err := in.storeJobs(ctx, SourceGmail, jobs, nil, true, res); err != nil {
				return err
			}
			continue
		}

		stored, _, err := in.store.RecordEmail(ctx, &db.Email{
			GmailID:    msg.GmailID,
			ThreadID:   msg.ThreadID,
			Subject:    msg.Subject,
			Sender:     msg.Sender,
			ReceivedAt: msg.ReceivedAt,
			RawHTML:    msg.HTML,
		})
		if err != nil {
			return err
		}
		if msg.HTML == "" {
			log.Warn("email_without_html")
			res.EmailsFailed++
			if err := in.store.MarkEmail(ctx, stored.ID, db.EmailFailed); err != nil {
				return err
			}
			continue
		}

		emailID := stored.ID
		jobs := in.extractor.Extract(msg.HTML, emailID.String())
		if err := in.storeJobs(ctx, SourceGmail, jobs, &emailID, false, res); err != nil {
			log.Error("email_store_failed", zap.Error(err))
			res.EmailsFailed++
			if markErr := in.store.MarkEmail(ctx, emailID, db.EmailFailed); markErr != nil {
				return markErr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err := in.store.MarkEmail(ctx, emailID, db.EmailParsed); err != nil {
			return err
		}
		log.Info("email_parsed", zap.Int("jobs", len(jobs)))
	}
	return nil
}

func (in *Ingester) storeJobs(ctx context.Context, source string, jobs []extract.Job, emailID *uuid.UUID, dryRun bool, res *IngestResult) error {
	res.Found += len(jobs)
	if dryRun {
		res.Jobs = append(res.Jobs, jobs...)
		return nil
	}
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		inserted, err := in.store.InsertJobIfNew(ctx, &db.NewJob{
			URLHash:       j.URLHash,
			Company:       j.Company,
			Title:         j.Title,
			Location:      j.Location,
			URL:           j.URL,
			ATSType:       j.ATSType,
			SourceEmailID: emailID,
			DiscoveredAt:  j.DiscoveredAt,
		})
		if err != nil {
			return err
		}
		if !inserted {
			res.Duplicates++
			continue
		}
		res.Inserted++
		fields := append(logger.JobFields(j.Company, j.Title, string(j.ATSType)), zap.String(logger.FieldSource, source))
		in.logger.Debug("job_inserted", fields...)
		notify.Emit(ctx, in.publisher, in.logger, notify.Event{
			Type:    notify.EventJobDiscovered,
			Company: j.Company,
			Title:   j.Title,
			URL:     j.URL,
		})
	}
	return nil
}
