package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/extract"
	"github.com/jonathan/jobly/internal/fetch"
)

// Readme reads the internship feed table from a README document.
type Readme struct {
	url       string
	extractor *extract.Extractor
	feed      extract.FeedOptions
	fetchOpts *fetch.Options
	logger    *zap.Logger
}

// ReadmeOption configures a Readme source.
type ReadmeOption func(*Readme)

// WithFetchOptions overrides the HTTP options used to download the README.
func WithFetchOptions(opts *fetch.Options) ReadmeOption {
	return func(r *Readme) {
		if opts != nil {
			r.fetchOpts = opts
		}
	}
}

// WithReadmeLogger sets the logger.
func WithReadmeLogger(logger *zap.Logger) ReadmeOption {
	return func(r *Readme) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReadme creates a feed source for the README at url. Roles must match
// one of titleKeywords and postings on skipATS are dropped.
func NewReadme(url string, titleKeywords []string, skipATS []ats.Type, opts ...ReadmeOption) *Readme {
	r := &Readme{
		url:       url,
		feed:      extract.FeedOptions{TitleKeywords: titleKeywords, SkipATS: skipATS},
		fetchOpts: fetch.DefaultOptions(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetchOpts.Logger == nil {
		r.fetchOpts.Logger = r.logger
	}
	r.extractor = extract.New(extract.WithLogger(r.logger))
	return r
}

// URL returns the README location.
func (r *Readme) URL() string {
	return r.url
}

// Fetch downloads the README and returns the jobs in its feed table.
func (r *Readme) Fetch(ctx context.Context) ([]extract.Job, error) {
	res, err := fetch.URL(ctx, r.url, r.fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch readme feed: %w", err)
	}
	jobs := r.extractor.ParseFeed(res.HTML, r.feed)
	r.logger.Info("readme_jobs_parsed", zap.String("url", r.url), zap.Int("count", len(jobs)))
	return jobs, nil
}
