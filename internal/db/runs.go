package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStats are the counters written when a run finishes.
type RunStats struct {
	Processed int
	Submitted int
	Skipped   int
	Errored   int
}

// CreateRun starts a new application run.
func (d *DB) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Status:    RunRunning,
	}
	_, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO application_runs (id, started_at, status) VALUES (?, ?, ?)`),
		run.ID, run.StartedAt, string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun records the final status and counters of a run.
func (d *DB) FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, stats RunStats) error {
	res, err := d.conn.ExecContext(ctx, d.rebind(
		`UPDATE application_runs SET status = ?, finished_at = ?,
			jobs_processed = ?, jobs_submitted = ?, jobs_skipped = ?, jobs_errored = ?
		 WHERE id = ?`),
		string(status), time.Now().UTC(),
		stats.Processed, stats.Submitted, stats.Skipped, stats.Errored, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := d.conn.QueryContext(ctx, d.rebind(
		`SELECT id, started_at, finished_at, status,
			jobs_processed, jobs_submitted, jobs_skipped, jobs_errored
		 FROM application_runs ORDER BY seq DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r      Run
			status string
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &status,
			&r.JobsProcessed, &r.JobsSubmitted, &r.JobsSkipped, &r.JobsErrored); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
