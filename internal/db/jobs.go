package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobly/internal/ats"
)

const jobColumns = `id, url_hash, company, title, location, url, ats_type,
	fit_score, fit_reason, source_email_id, discovered_at, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*JobPost, error) {
	var (
		j       JobPost
		atsType string
		status  string
	)
	err := row.Scan(&j.ID, &j.URLHash, &j.Company, &j.Title, &j.Location, &j.URL, &atsType,
		&j.FitScore, &j.FitReason, &j.SourceEmailID, &j.DiscoveredAt, &status)
	if err != nil {
		return nil, err
	}
	j.ATSType = ats.Parse(atsType)
	j.Status = JobStatus(status)
	return &j, nil
}

// InsertJobIfNew stores a job in the discovered state unless a job with the
// same URL hash already exists. It reports whether a row was inserted.
// Uniqueness is enforced by the database, so concurrent ingestion is safe.
func (d *DB) InsertJobIfNew(ctx context.Context, job *NewJob) (bool, error) {
	if job.URLHash == "" || job.URL == "" || job.Title == "" {
		return false, fmt.Errorf("failed to insert job: url, url hash and title are required")
	}
	discoveredAt := job.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = time.Now().UTC()
	}
	atsType := job.ATSType
	if atsType == "" {
		atsType = ats.Unknown
	}

	res, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO job_posts (id, url_hash, company, title, location, url, ats_type,
			source_email_id, discovered_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url_hash) DO NOTHING`),
		uuid.New(), job.URLHash, job.Company, job.Title, StringPtr(job.Location), job.URL,
		string(atsType), job.SourceEmailID, discoveredAt, string(JobDiscovered),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert job %s: %w", job.URLHash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// GetJob returns a job by ID, or nil when it does not exist.
func (d *DB) GetJob(ctx context.Context, id uuid.UUID) (*JobPost, error) {
	return d.getJob(ctx, d.conn, id)
}

func (d *DB) getJob(ctx context.Context, q queryer, id uuid.UUID) (*JobPost, error) {
	job, err := scanJob(q.QueryRowContext(ctx, d.rebind(
		`SELECT `+jobColumns+` FROM job_posts WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// GetJobByHash returns a job by URL hash, or nil when it does not exist.
func (d *DB) GetJobByHash(ctx context.Context, urlHash string) (*JobPost, error) {
	job, err := scanJob(d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT `+jobColumns+` FROM job_posts WHERE url_hash = ?`), urlHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by hash: %w", err)
	}
	return job, nil
}

// ListJobsByStatus returns jobs in the given status in creation order.
func (d *DB) ListJobsByStatus(ctx context.Context, status JobStatus) ([]JobPost, error) {
	rows, err := d.conn.QueryContext(ctx, d.rebind(
		`SELECT `+jobColumns+` FROM job_posts WHERE status = ? ORDER BY seq`), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s jobs: %w", status, err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []JobPost
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// CountJobsByStatus returns the number of jobs in each status.
func (d *DB) CountJobsByStatus(ctx context.Context) (map[JobStatus]int, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM job_posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[JobStatus(status)] = n
	}
	return counts, rows.Err()
}

// TransitionJob moves a job to a new status. Leaving discovered requires a
// score, which is written together with the status.
func (d *DB) TransitionJob(ctx context.Context, id uuid.UUID, to JobStatus, score *Score) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return d.transitionJob(ctx, tx, id, to, score)
	})
}

func (d *DB) transitionJob(ctx context.Context, q queryer, id uuid.UUID, to JobStatus, score *Score) error {
	var current string
	err := q.QueryRowContext(ctx, d.rebind(`SELECT status FROM job_posts WHERE id = ?`), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read job status: %w", err)
	}
	from := JobStatus(current)
	if !CanTransitionJob(from, to) {
		return fmt.Errorf("job %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}

	var res sql.Result
	if from == JobDiscovered {
		if score == nil {
			return fmt.Errorf("job %s -> %s: %w", id, to, ErrScoreRequired)
		}
		res, err = q.ExecContext(ctx, d.rebind(
			`UPDATE job_posts SET status = ?, fit_score = ?, fit_reason = ?
			 WHERE id = ? AND status = ?`),
			string(to), score.Value, score.Reason, id, string(from))
	} else {
		res, err = q.ExecContext(ctx, d.rebind(
			`UPDATE job_posts SET status = ? WHERE id = ? AND status = ?`),
			string(to), id, string(from))
	}
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s changed concurrently: %w", id, ErrInvalidTransition)
	}
	return nil
}

// ApplyDecisions writes the result of a scoring pass in a single
// transaction. Each job gets its score, reason and status together; queued
// jobs also get a queued application unless one is already active. It
// returns the number of applications created.
func (d *DB) ApplyDecisions(ctx context.Context, decisions []Decision) (int, error) {
	created := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		created = 0
		for _, dec := range decisions {
			if err := ctx.Err(); err != nil {
				return err
			}
			to := JobFilteredOut
			if dec.Queue {
				to = JobQueued
			}
			score := dec.Score
			if err := d.transitionJob(ctx, tx, dec.JobID, to, &score); err != nil {
				return err
			}
			if !dec.Queue {
				continue
			}
			ok, err := d.createApplication(ctx, tx, dec.JobID)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to apply scoring decisions: %w", err)
	}
	return created, nil
}
