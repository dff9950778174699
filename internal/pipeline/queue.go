package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/notify"
	"github.com/jonathan/jobly/internal/scoring"
)

// ScoredJob is a discovered job with its scoring outcome.
type ScoredJob struct {
	Job    db.JobPost
	Result scoring.Result
}

// Plan is the outcome of scoring every discovered job, not yet written.
type Plan struct {
	Jobs []ScoredJob
}

// Queued returns the jobs that pass the threshold.
func (p *Plan) Queued() []ScoredJob {
	var out []ScoredJob
	for _, j := range p.Jobs {
		if j.Result.ShouldQueue {
			out = append(out, j)
		}
	}
	return out
}

// Filtered returns the jobs below the threshold.
func (p *Plan) Filtered() []ScoredJob {
	var out []ScoredJob
	for _, j := range p.Jobs {
		if !j.Result.ShouldQueue {
			out = append(out, j)
		}
	}
	return out
}

// Queuer scores discovered jobs and queues applications for the good ones.
type Queuer struct {
	store     *db.DB
	cfg       scoring.Config
	publisher notify.Publisher
	logger    *zap.Logger
}

// NewQueuer creates a Queuer. Nil publisher and logger are allowed.
func NewQueuer(store *db.DB, cfg scoring.Config, publisher notify.Publisher, logger *zap.Logger) *Queuer {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queuer{store: store, cfg: cfg, publisher: publisher, logger: logger}
}

// Plan scores every discovered job in creation order without writing.
func (q *Queuer) Plan(ctx context.Context) (*Plan, error) {
	jobs, err := q.store.ListJobsByStatus(ctx, db.JobDiscovered)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Jobs: make([]ScoredJob, 0, len(jobs))}
	for _, j := range jobs {
		res := scoring.Score(j.Title, j.Company, j.LocationOrEmpty(), j.ATSType, q.cfg)
		plan.Jobs = append(plan.Jobs, ScoredJob{Job: j, Result: res})
	}
	q.logger.Debug("queue_planned",
		zap.Int("discovered", len(plan.Jobs)),
		zap.Int("queued", len(plan.Queued())),
	)
	return plan, nil
}

// Commit writes a plan in one transaction: every job gets its score and
// status, and queued jobs get an application. It returns the number of
// applications created.
func (q *Queuer) Commit(ctx context.Context, plan *Plan) (int, error) {
	if plan == nil || len(plan.Jobs) == 0 {
		return 0, nil
	}
	decisions := make([]db.Decision, 0, len(plan.Jobs))
	for _, j := range plan.Jobs {
		decisions = append(decisions, db.Decision{
			JobID: j.Job.ID,
			Score: db.Score{Value: j.Result.Score, Reason: j.Result.Reason},
			Queue: j.Result.ShouldQueue,
		})
	}
	created, err := q.store.ApplyDecisions(ctx, decisions)
	if err != nil {
		return 0, err
	}

	for _, j := range plan.Queued() {
		score := j.Result.Score
		notify.Emit(ctx, q.publisher, q.logger, notify.Event{
			Type:    notify.EventJobQueued,
			JobID:   j.Job.ID.String(),
			Company: j.Job.Company,
			Title:   j.Job.Title,
			URL:     j.Job.URL,
			Score:   &score,
		})
	}
	q.logger.Info("queue_committed",
		zap.Int("scored", len(plan.Jobs)),
		zap.Int("applications_created", created),
	)
	return created, nil
}

// Run plans and commits in one step.
func (q *Queuer) Run(ctx context.Context) (*Plan, int, error) {
	plan, err := q.Plan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to score discovered jobs: %w", err)
	}
	created, err := q.Commit(ctx, plan)
	if err != nil {
		return plan, 0, err
	}
	return plan, created, nil
}
