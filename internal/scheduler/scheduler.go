// Package scheduler runs the ingest and queue passes on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/pipeline"
)

// Cycle is one unit of scheduled work.
type Cycle func(ctx context.Context) error

// Scheduler wraps robfig/cron and drives a Cycle.
type Scheduler struct {
	cron   *cron.Cron
	spec   string // cron spec, e.g. "@every 30m"
	cycle  Cycle
	logger *zap.Logger

	first sync.WaitGroup // the immediate cycle started outside cron

	mu      sync.Mutex
	running bool
	cycles  int
}

// New creates a Scheduler that fires every interval.
func New(interval time.Duration, cycle Cycle, logger *zap.Logger) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("watch interval must be at least 1s, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLogger{logger.Sugar()})),
		spec:   "@every " + interval.String(),
		cycle:  cycle,
		logger: logger,
	}, nil
}

// Spec returns the cron spec the scheduler registers.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the cycle and starts the cron loop. One cycle also runs
// immediately so results do not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler_started", zap.String("spec", s.spec))

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.Tick(ctx)
	}()
	return nil
}

// Stop stops the cron loop and waits for a running cycle to finish,
// including the immediate one started by Start.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.first.Wait()
	s.logger.Info("scheduler_stopped", zap.Int("cycles", s.Cycles()))
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Tick runs one cycle unless one is already in flight. It reports whether
// the cycle ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running || ctx.Err() != nil {
		s.mu.Unlock()
		s.logger.Debug("scheduler_cycle_skipped")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cycles++
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("scheduler_cycle_started")
	if err := s.cycle(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return true
		}
		s.logger.Error("scheduler_cycle_failed", zap.Error(err))
		return true
	}
	s.logger.Info("scheduler_cycle_completed", zap.Duration("duration", time.Since(start)))
	return true
}

// Cycles returns how many cycles have completed.
func (s *Scheduler) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// Result summarizes one ingest and queue cycle.
type Result struct {
	Ingest *pipeline.IngestResult
	Queued int
}

// PipelineCycle ingests sources then queues matching jobs. report, when set,
// receives every completed cycle.
func PipelineCycle(in *pipeline.Ingester, q *pipeline.Queuer, sources []string, report func(Result)) Cycle {
	return func(ctx context.Context) error {
		res, err := in.Run(ctx, pipeline.IngestOptions{Sources: sources})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		_, created, err := q.Run(ctx)
		if err != nil {
			return err
		}
		if report != nil {
			report(Result{Ingest: res, Queued: created})
		}
		return nil
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
