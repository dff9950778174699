package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/canonical"
)

// boilerplatePattern matches class and id values of footer-like sections.
var boilerplatePattern = regexp.MustCompile(`(?i)footer|unsubscribe|legal|disclaimer`)

// Extractor parses HTML documents into Jobs.
type Extractor struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source for DiscoveredAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the jobs found in a digest email body. The first strategy
// that yields any candidate wins; later strategies are not attempted.
// Jobs are returned in document order with duplicates (by URL hash) removed.
// Unparseable or empty input yields no jobs.
func (e *Extractor) Extract(html string, sourceID string) []Job {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug("parser_invalid_document", zap.Error(err))
		return nil
	}
	removeBoilerplate(doc)

	var candidates []candidate
	for _, s := range cascade {
		candidates = s.run(doc)
		if len(candidates) > 0 {
			e.logger.Debug("parser_candidates",
				zap.String("strategy", s.name),
				zap.Int("count", len(candidates)))
			break
		}
	}

	jobs := e.normalize(candidates, sourceID)
	e.logger.Info("parser_jobs_found",
		zap.Int("count", len(jobs)),
		zap.String("email_id", sourceID))
	return jobs
}

// normalize canonicalizes, hashes, classifies and dedups raw candidates.
func (e *Extractor) normalize(candidates []candidate, sourceID string) []Job {
	seen := make(map[string]struct{}, len(candidates))
	jobs := make([]Job, 0, len(candidates))
	for _, c := range candidates {
		if c.url == "" || c.title == "" {
			continue
		}
		canon := canonical.Canonicalize(c.url)
		hash := canonical.Hash(canon)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		jobs = append(jobs, Job{
			Company:       c.company,
			Title:         c.title,
			URL:           canon,
			URLHash:       hash,
			ATSType:       ats.Classify(canon),
			Location:      c.location,
			SourceEmailID: sourceID,
			DiscoveredAt:  e.now(),
		})
	}
	return jobs
}

// removeBoilerplate drops non-content tags and footer-like sections.
func removeBoilerplate(doc *goquery.Document) {
	doc.Find("style, script, meta, head").Remove()
	doc.Find("[class], [id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return boilerplatePattern.MatchString(class) || boilerplatePattern.MatchString(id)
	}).Remove()
}
