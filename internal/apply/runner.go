package apply

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/fetch"
	"github.com/jonathan/jobly/internal/llm"
	"github.com/jonathan/jobly/internal/logger"
	"github.com/jonathan/jobly/internal/notify"
)

// ErrInterrupted is returned by a Prompter when the user aborts the run.
var ErrInterrupted = errors.New("interrupted")

// maxErrorMessage bounds the stored error text.
const maxErrorMessage = 500

// Prompter is the human side of the run. Every submission is gated on
// ConfirmSubmit.
type Prompter interface {
	Asker
	// ConfirmStart asks whether to open and fill the application.
	ConfirmStart(ctx context.Context, job db.JobPost) (bool, error)
	// ConfirmGuided asks whether to continue with a partially automated form.
	ConfirmGuided(ctx context.Context, job db.JobPost) (bool, error)
	// WaitForReview blocks until the user has completed a guided form.
	WaitForReview(ctx context.Context, job db.JobPost) error
	// ConfirmSubmit is the final gate. eval is nil when no evaluation ran.
	ConfirmSubmit(ctx context.Context, job db.JobPost, eval *llm.Evaluation) (bool, error)
}

// Browser is a page that must be closed after use.
type Browser interface {
	Page
	Close() error
}

// BrowserFactory opens a fresh browser for one application.
type BrowserFactory func(ctx context.Context) (Browser, error)

// SessionFactory returns a BrowserFactory launching chromedp sessions.
func SessionFactory(cfg SessionConfig, logger *zap.Logger) BrowserFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewSession(ctx, cfg, logger)
	}
}

// Outcome is how one application ended.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeErrored   Outcome = "error"
)

// RunEvent reports progress through the queue.
type RunEvent struct {
	Step       string
	Index      int
	Total      int
	Job        db.JobPost
	Fill       *FillResult
	Evaluation *llm.Evaluation
	Outcome    Outcome
}

// Run steps reported through RunEvent.
const (
	StepStart     = "start"
	StepOpened    = "opened"
	StepFilled    = "filled"
	StepEvaluated = "evaluated"
	StepDone      = "done"
)

// RunOptions configures one pass over the queue.
type RunOptions struct {
	// Limit caps the applications processed; zero means all.
	Limit   int
	Profile *config.Profile
	Resume  string
	SkipLLM bool
	// MinWait and MaxWait bound the random pause after each page load.
	MinWait    time.Duration
	MaxWait    time.Duration
	OnProgress func(RunEvent)
}

// RunResult summarizes a run. Run is nil when the queue was empty.
type RunResult struct {
	Run   *db.Run
	Stats db.RunStats
}

// Runner walks queued applications through their adapters.
type Runner struct {
	store     *db.DB
	browser   BrowserFactory
	prompter  Prompter
	registry  *Registry
	evaluator *llm.Evaluator
	artifacts *Artifacts
	publisher notify.Publisher
	logger    *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRegistry replaces the default adapter registry.
func WithRegistry(r *Registry) RunnerOption {
	return func(rn *Runner) {
		if r != nil {
			rn.registry = r
		}
	}
}

// WithEvaluator enables LLM review before the submit gate.
func WithEvaluator(e *llm.Evaluator) RunnerOption {
	return func(rn *Runner) { rn.evaluator = e }
}

// WithArtifactsDir sets where screenshots and snapshots are written.
func WithArtifactsDir(dir string) RunnerOption {
	return func(rn *Runner) { rn.artifacts = NewArtifacts(dir) }
}

// WithPublisher sends application events to p.
func WithPublisher(p notify.Publisher) RunnerOption {
	return func(rn *Runner) {
		if p != nil {
			rn.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(store *db.DB, browser BrowserFactory, prompter Prompter, opts ...RunnerOption) *Runner {
	rn := &Runner{
		store:     store,
		browser:   browser,
		prompter:  prompter,
		registry:  NewRegistry(),
		artifacts: NewArtifacts("artifacts"),
		publisher: notify.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rn)
	}
	return rn
}

// Run processes queued applications in the order they were queued. Each
// application ends submitted, skipped or errored; a failure in one never
// stops the run. Cancelling ctx or ErrInterrupted from the prompter stops
// the run and records it as interrupted.
func (rn *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	queued, err := rn.store.ListQueuedApplications(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	if len(queued) == 0 {
		rn.logger.Info("run_queue_empty")
		return &RunResult{}, nil
	}

	run, err := rn.store.CreateRun(ctx)
	if err != nil {
		return nil, err
	}
	rn.logger.Info("run_started", zap.String("run_id", run.ID.String()), zap.Int("queued", len(queued)))

	var suggester Suggester
	if !opts.SkipLLM && rn.evaluator.Enabled() {
		suggester = rn.evaluator
	}
	resolver := NewQuestionResolver(rn.store, rn.prompter, suggester, opts.Profile, rn.logger)

	var stats db.RunStats
	status := db.RunCompleted
	for i, qa := range queued {
		if ctx.Err() != nil {
			status = db.RunInterrupted
			break
		}
		p := &progress{opts: opts, index: i + 1, total: len(queued), job: qa.Job}
		p.emit(RunEvent{Step: StepStart})

		outcome, err := rn.process(ctx, run.ID, qa, opts, resolver, p)
		if err != nil {
			if isInterrupt(ctx, err) {
				status = db.RunInterrupted
				break
			}
			rn.finish(ctx, run.ID, db.RunInterrupted, stats)
			return nil, err
		}
		stats.Processed++
		switch outcome {
		case OutcomeSubmitted:
			stats.Submitted++
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeErrored:
			stats.Errored++
		}
		p.emit(RunEvent{Step: StepDone, Outcome: outcome})
	}

	rn.finish(ctx, run.ID, status, stats)
	run.Status = status
	run.JobsProcessed, run.JobsSubmitted = stats.Processed, stats.Submitted
	run.JobsSkipped, run.JobsErrored = stats.Skipped, stats.Errored
	rn.logger.Info("run_finished",
		zap.String("status", string(status)),
		zap.Int("submitted", stats.Submitted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errored", stats.Errored),
	)
	return &RunResult{Run: run, Stats: stats}, nil
}

func (rn *Runner) finish(ctx context.Context, id uuid.UUID, status db.RunStatus, stats db.RunStats) {
	if err := rn.store.FinishRun(context.WithoutCancel(ctx), id, status, stats); err != nil {
		rn.logger.Error("run_finish_failed", zap.Error(err))
	}
}

func isInterrupt(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}

type progress struct {
	opts  RunOptions
	index int
	total int
	job   db.JobPost
}

func (p *progress) emit(e RunEvent) {
	if p.opts.OnProgress == nil {
		return
	}
	e.Index, e.Total, e.Job = p.index, p.total, p.job
	p.opts.OnProgress(e)
}

// process runs one application. It returns an error only for interruptions
// and store failures; adapter failures become OutcomeErrored.
func (rn *Runner) process(ctx context.Context, runID uuid.UUID, qa db.QueuedApplication, opts RunOptions, resolver *QuestionResolver, p *progress) (Outcome, error) {
	job, app := qa.Job, qa.Application
	log := logger.WithFields(rn.logger, logger.JobFields(job.Company, job.Title, string(job.ATSType))...)

	proceed, err := rn.prompter.ConfirmStart(ctx, job)
	if err != nil {
		return "", err
	}
	if !proceed {
		return OutcomeSkipped, rn.update(ctx, job, app.ID, db.ApplicationUpdate{Status: db.AppSkipped})
	}

	atsType := job.ATSType
	if atsType == "" || atsType == ats.Unknown {
		atsType = ats.Classify(job.URL)
	}
	if err := rn.update(ctx, job, app.ID, db.ApplicationUpdate{
		Status:  db.AppStarted,
		RunID:   &runID,
		ATSType: &atsType,
	}); err != nil {
		return "", err
	}

	browser, err := rn.browser(ctx)
	if err != nil {
		if isInterrupt(ctx, err) {
			return "", err
		}
		log.Error("browser_start_failed", zap.Error(err))
		return OutcomeErrored, rn.update(ctx, job, app.ID, db.ApplicationUpdate{
			Status:       db.AppError,
			ErrorMessage: db.StringPtr(truncate(err.Error(), maxErrorMessage)),
		})
	}
	defer func() { _ = browser.Close() }()

	adapter := rn.registry.Adapter(atsType, browser, log)
	label := fmt.Sprintf("%s_%s", job.Company, job.ID.String()[:8])
	a := &attempt{rn: rn, job: job, appID: app.ID, page: browser, label: label, log: log}

	if IsGuided(adapter) {
		ok, err := rn.prompter.ConfirmGuided(ctx, job)
		if err != nil {
			return a.failed(ctx, err)
		}
		if !ok {
			return OutcomeSkipped, rn.update(ctx, job, app.ID, db.ApplicationUpdate{Status: db.AppSkipped})
		}
	}

	if err := adapter.Open(ctx, job.URL); err != nil {
		return a.failed(ctx, err)
	}
	browser.Pause(ctx, randomWait(opts.MinWait, opts.MaxWait))
	p.emit(RunEvent{Step: StepOpened})
	evaluate := !opts.SkipLLM && rn.evaluator.Enabled()
	var description string
	if evaluate {
		description = rn.describe(ctx, browser, atsType, log)
	}

	fill, err := adapter.Fill(ctx, opts.Profile, opts.Resume, resolver)
	if err != nil {
		return a.failed(ctx, err)
	}
	if err := rn.update(ctx, job, app.ID, db.ApplicationUpdate{
		Status:      db.AppFilled,
		AnswersUsed: fill.Answers(),
	}); err != nil {
		return "", err
	}
	p.emit(RunEvent{Step: StepFilled, Fill: &fill})

	if IsGuided(adapter) {
		err = rn.prompter.WaitForReview(ctx, job)
	} else {
		err = adapter.ReachReview(ctx)
	}
	if err != nil {
		return a.failed(ctx, err)
	}

	review := db.ApplicationUpdate{Status: db.AppNeedsReview}
	if shot, err := rn.artifacts.Screenshot(ctx, browser, "review_"+label); err == nil {
		review.ScreenshotPath = &shot
	} else {
		log.Warn("screenshot_failed", zap.Error(err))
	}

	var eval *llm.Evaluation
	if evaluate {
		result := rn.evaluator.Evaluate(ctx, llm.Request{
			Company:         job.Company,
			Title:           job.Title,
			Location:        job.LocationOrEmpty(),
			ATS:             atsType,
			FitScore:        job.FitScore,
			FitReason:       job.FitReason,
			Description:     description,
			Profile:         opts.Profile,
			SubmittedFields: fill.Answers(),
			CustomAnswers:   fill.CustomAnswers(),
		})
		eval = &result
		rec := string(result.Recommendation)
		review.LLMRecommendation = &rec
		review.LLMRationale = db.StringPtr(result.Rationale)
		p.emit(RunEvent{Step: StepEvaluated, Evaluation: eval})
	}
	if err := rn.update(ctx, job, app.ID, review); err != nil {
		return "", err
	}

	confirmed, err := rn.prompter.ConfirmSubmit(ctx, job, eval)
	if err != nil {
		return a.failed(ctx, err)
	}
	if !confirmed {
		log.Info("application_skipped")
		return OutcomeSkipped, rn.update(ctx, job, app.ID, db.ApplicationUpdate{Status: db.AppSkipped})
	}

	if err := adapter.Submit(ctx); err != nil {
		return a.failed(ctx, err)
	}
	submitted := db.ApplicationUpdate{Status: db.AppSubmitted}
	if shot, err := rn.artifacts.Screenshot(ctx, browser, "submitted_"+label); err == nil {
		submitted.ScreenshotPath = &shot
	}
	log.Info("application_submitted")
	return OutcomeSubmitted, rn.update(ctx, job, app.ID, submitted)
}

// describe extracts the posting text shown to the evaluator.
func (rn *Runner) describe(ctx context.Context, page Page, atsType ats.Type, log *zap.Logger) string {
	html, err := page.HTML(ctx)
	if err != nil {
		log.Debug("description_unavailable", zap.Error(err))
		return ""
	}
	text, err := fetch.JobDescription(html, atsType)
	if err != nil {
		log.Debug("description_unavailable", zap.Error(err))
		return ""
	}
	return text
}

func (rn *Runner) update(ctx context.Context, job db.JobPost, id uuid.UUID, upd db.ApplicationUpdate) error {
	if err := rn.store.UpdateApplication(context.WithoutCancel(ctx), id, upd); err != nil {
		return err
	}
	notify.Emit(ctx, rn.publisher, rn.logger, notify.Event{
		Type:          notify.EventApplicationUpdated,
		JobID:         job.ID.String(),
		ApplicationID: id.String(),
		Company:       job.Company,
		Title:         job.Title,
		URL:           job.URL,
		Status:        string(upd.Status),
	})
	return nil
}

// attempt holds what failure handling needs for one open application.
type attempt struct {
	rn    *Runner
	job   db.JobPost
	appID uuid.UUID
	page  Page
	label string
	log   *zap.Logger
}

// failed records err. Interruptions leave the application in its current
// status with an HTML snapshot and are returned; anything else marks the
// application errored with a screenshot and snapshot.
func (a *attempt) failed(ctx context.Context, err error) (Outcome, error) {
	bg := context.WithoutCancel(ctx)
	if isInterrupt(ctx, err) {
		snap, snapErr := a.rn.artifacts.HTML(bg, a.page, "interrupt_"+a.label)
		a.log.Warn("application_interrupted", zap.String("snapshot", snap), zap.NamedError("snapshot_error", snapErr))
		return "", err
	}

	a.log.Error("application_error", zap.String("job_id", a.job.ID.String()), zap.Error(err))
	upd := db.ApplicationUpdate{
		Status:       db.AppError,
		ErrorMessage: db.StringPtr(truncate(err.Error(), maxErrorMessage)),
	}
	if shot, err := a.rn.artifacts.Screenshot(bg, a.page, "error_"+a.label); err == nil {
		upd.ScreenshotPath = &shot
	}
	if snap, err := a.rn.artifacts.HTML(bg, a.page, "error_"+a.label); err == nil {
		upd.HTMLSnapshotPath = &snap
	}
	return OutcomeErrored, a.rn.update(bg, a.job, a.appID, upd)
}

// randomWait picks a pause in [lo, hi].
func randomWait(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
