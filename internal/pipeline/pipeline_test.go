package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/canonical"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/extract"
	"github.com/jonathan/jobly/internal/notify"
	"github.com/jonathan/jobly/internal/scoring"
	"github.com/jonathan/jobly/internal/sources"
)

type fakeFeed struct {
	jobs []extract.Job
	err  error
}

func (f *fakeFeed) Fetch(context.Context) ([]extract.Job, error) {
	return f.jobs, f.err
}

type fakeEmails struct {
	emails []sources.Email
	err    error
	seen   map[string]bool
}

func (f *fakeEmails) Fetch(_ context.Context, seen map[string]bool) ([]sources.Email, error) {
	f.seen = seen
	if f.err != nil {
		return nil, f.err
	}
	var out []sources.Email
	for _, e := range f.emails {
		if !seen[e.GmailID] {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func feedJob(company, title, rawURL, location string) extract.Job {
	canon := canonical.Canonicalize(rawURL)
	return extract.Job{
		Company:      company,
		Title:        title,
		URL:          canon,
		URLHash:      canonical.Hash(canon),
		ATSType:      ats.Classify(canon),
		Location:     location,
		DiscoveredAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func digestEmail(t *testing.T, id string) sources.Email {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "extract", "testdata", "table_digest.html"))
	require.NoError(t, err)
	return sources.Email{
		GmailID:    id,
		ThreadID:   "t-" + id,
		Subject:    "Internships this week",
		Sender:     "jobs@example.com",
		ReceivedAt: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		HTML:       string(b),
	}
}

func TestIngest_FeedAndEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	pub := &recordingPublisher{}

	feed := &fakeFeed{jobs: []extract.Job{
		feedJob("Stark Industries", "Software Engineer Intern", "https://jobs.ashbyhq.com/stark/111", "New York, NY"),
		feedJob("Hooli", "Infrastructure Intern", "https://boards.greenhouse.io/hooli/jobs/12?utm_source=x", "Seattle, WA"),
	}}
	emails := &fakeEmails{emails: []sources.Email{digestEmail(t, "m1")}}

	var events []ProgressEvent
	in := NewIngester(store, WithFeedSource(feed), WithEmailSource(emails), WithPublisher(pub))
	res, err := in.Run(ctx, IngestOptions{
		Sources:    []string{SourceGitHub, SourceGmail},
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Emails)
	assert.Equal(t, 0, res.EmailsFailed)
	assert.Equal(t, 4, res.Found)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 1, res.Duplicates, "hooli appears in both sources")
	assert.Empty(t, res.Jobs)

	jobs, err := store.ListJobsByStatus(ctx, db.JobDiscovered)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Stark Industries", jobs[0].Company)
	assert.Nil(t, jobs[0].SourceEmailID)
	assert.Equal(t, "Pied Piper", jobs[2].Company)
	require.NotNil(t, jobs[2].SourceEmailID)

	email, err := store.GetEmail(ctx, *jobs[2].SourceEmailID)
	require.NoError(t, err)
	require.NotNil(t, email)
	assert.Equal(t, "m1", email.GmailID)
	assert.Equal(t, db.EmailParsed, email.Status)
	assert.NotNil(t, email.ProcessedAt)

	assert.Equal(t, 3, pub.count(notify.EventJobDiscovered))
	assert.Equal(t, 1, pub.count(notify.EventIngestCompleted))
	require.NotEmpty(t, events)
	assert.Equal(t, "ingestion complete", events[len(events)-1].Message)

	// A second pass skips the recorded email and inserts nothing.
	res, err = in.Run(ctx, IngestOptions{Sources: []string{SourceGitHub, SourceGmail}})
	require.NoError(t, err)
	assert.True(t, emails.seen["m1"])
	assert.Equal(t, 0, res.Emails)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Duplicates)
}

func TestIngest_DryRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	in := NewIngester(store,
		WithFeedSource(&fakeFeed{jobs: []extract.Job{
			feedJob("Acme", "SWE Intern", "https://jobs.lever.co/acme/1", "Remote"),
		}}),
		WithEmailSource(&fakeEmails{emails: []sources.Email{digestEmail(t, "m1")}}),
		WithPublisher(pub),
	)

	res, err := in.Run(ctx, IngestOptions{Sources: []string{SourceGitHub, SourceGmail}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	assert.Len(t, res.Jobs, 3)
	assert.Zero(t, res.Inserted)

	counts, err := store.CountJobsByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
	seen, err := store.SeenEmailIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, seen)
	assert.Empty(t, pub.events)
}

func TestIngest_EmailWithoutHTML(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	in := NewIngester(store, WithEmailSource(&fakeEmails{emails: []sources.Email{{GmailID: "empty"}}}))

	res, err := in.Run(ctx, IngestOptions{Sources: []string{SourceGmail}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EmailsFailed)

	seen, err := store.SeenEmailIDs(ctx)
	require.NoError(t, err)
	assert.True(t, seen["empty"])
}

func TestIngest_SourceError(t *testing.T) {
	store := newTestStore(t)
	in := NewIngester(store,
		WithFeedSource(&fakeFeed{err: errors.New("connection refused")}),
		WithEmailSource(&fakeEmails{}),
	)

	_, err := in.Run(context.Background(), IngestOptions{Sources: []string{SourceGmail, SourceGitHub}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github source failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIngest_UnconfiguredSource(t *testing.T) {
	in := NewIngester(newTestStore(t))

	_, err := in.Run(context.Background(), IngestOptions{Sources: []string{SourceGmail}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	_, err = in.Run(context.Background(), IngestOptions{Sources: []string{"rss"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func insertDiscovered(t *testing.T, store *db.DB, company, title, rawURL, location string) {
	t.Helper()
	j := feedJob(company, title, rawURL, location)
	inserted, err := store.InsertJobIfNew(context.Background(), &db.NewJob{
		URLHash:  j.URLHash,
		Company:  j.Company,
		Title:    j.Title,
		Location: j.Location,
		URL:      j.URL,
		ATSType:  j.ATSType,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestQueuer_PlanAndCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertDiscovered(t, store, "Stark", "Software Engineer Intern", "https://jobs.ashbyhq.com/stark/1", "New York, NY")
	insertDiscovered(t, store, "Dunder", "Marketing Coordinator", "https://dunder.com/careers/2", "Scranton, PA")
	insertDiscovered(t, store, "Hooli", "Backend Intern", "https://boards.greenhouse.io/hooli/jobs/3", "Remote")

	pub := &recordingPublisher{}
	q := NewQueuer(store, scoring.DefaultConfig(), pub, nil)

	plan, err := q.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 3)
	require.Len(t, plan.Queued(), 2)
	require.Len(t, plan.Filtered(), 1)
	assert.Equal(t, "Marketing Coordinator", plan.Filtered()[0].Job.Title)
	assert.Zero(t, plan.Filtered()[0].Result.Score)

	// Planning alone writes nothing.
	discovered, err := store.ListJobsByStatus(ctx, db.JobDiscovered)
	require.NoError(t, err)
	assert.Len(t, discovered, 3)

	created, err := q.Commit(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, pub.count(notify.EventJobQueued))

	counts, err := store.CountJobsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[db.JobStatus]int{db.JobQueued: 2, db.JobFilteredOut: 1}, counts)

	queued, err := store.ListQueuedApplications(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "Stark", queued[0].Job.Company)
	assert.Equal(t, plan.Queued()[0].Result.Score, queued[0].Job.FitScore)
	assert.Equal(t, plan.Queued()[0].Result.Reason, queued[0].Job.FitReason)

	// Nothing is left to score.
	plan, created, err = q.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, plan.Jobs)
	assert.Zero(t, created)
}

func TestQueuer_ExcludedLocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insertDiscovered(t, store, "Stark", "Software Engineer Intern", "https://jobs.ashbyhq.com/stark/1", "Toronto, ON")

	cfg := scoring.DefaultConfig()
	cfg.ExcludedLocations = []string{"toronto"}
	plan, created, err := NewQueuer(store, cfg, nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
	require.Len(t, plan.Filtered(), 1)
	assert.Contains(t, plan.Filtered()[0].Result.Reason, "excluded location: toronto")

	filtered, err := store.ListJobsByStatus(ctx, db.JobFilteredOut)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Zero(t, filtered[0].FitScore)
}

func TestQueuer_CommitCancelled(t *testing.T) {
	store := newTestStore(t)
	insertDiscovered(t, store, "Stark", "Software Engineer Intern", "https://jobs.ashbyhq.com/stark/1", "")
	q := NewQueuer(store, scoring.DefaultConfig(), nil, nil)

	plan, err := q.Plan(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Commit(ctx, plan)
	require.Error(t, err)

	discovered, err := store.ListJobsByStatus(context.Background(), db.JobDiscovered)
	require.NoError(t, err)
	assert.Len(t, discovered, 1)
}
