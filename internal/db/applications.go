package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobly/internal/ats"
)

const applicationColumns = `a.id, a.job_post_id, a.run_id, a.created_at, a.updated_at, a.status,
	a.ats_type, a.answers_used, a.llm_recommendation, a.llm_rationale, a.error_message,
	a.screenshot_path, a.html_snapshot_path`

func scanApplication(row rowScanner, extra ...any) (*Application, error) {
	var (
		a       Application
		status  string
		atsType string
		answers *string
	)
	dest := []any{&a.ID, &a.JobPostID, &a.RunID, &a.CreatedAt, &a.UpdatedAt, &status,
		&atsType, &answers, &a.LLMRecommendation, &a.LLMRationale, &a.ErrorMessage,
		&a.ScreenshotPath, &a.HTMLSnapshotPath}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Status = ApplicationStatus(status)
	a.ATSType = ats.Parse(atsType)
	if answers != nil && *answers != "" {
		if err := json.Unmarshal([]byte(*answers), &a.AnswersUsed); err != nil {
			return nil, fmt.Errorf("failed to decode answers_used: %w", err)
		}
	}
	return &a, nil
}

// activeStatusArgs returns the active statuses as query arguments.
func activeStatusArgs() []any {
	active := ActiveApplicationStatuses()
	args := make([]any, len(active))
	for i, s := range active {
		args[i] = string(s)
	}
	return args
}

// hasActiveApplication reports whether the job has an application in flight
// other than except.
func (d *DB) hasActiveApplication(ctx context.Context, q queryer, jobID uuid.UUID, except *uuid.UUID) (bool, error) {
	query := `SELECT COUNT(*) FROM applications WHERE job_post_id = ? AND status IN (` +
		inPlaceholders(len(ActiveApplicationStatuses())) + `)`
	args := append([]any{jobID}, activeStatusArgs()...)
	if except != nil {
		query += ` AND id <> ?`
		args = append(args, *except)
	}
	var n int
	if err := q.QueryRowContext(ctx, d.rebind(query), args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check active applications: %w", err)
	}
	return n > 0, nil
}

// createApplication queues a new application for a job unless one is already
// active. It reports whether a row was created.
func (d *DB) createApplication(ctx context.Context, q queryer, jobID uuid.UUID) (bool, error) {
	active, err := d.hasActiveApplication(ctx, q, jobID, nil)
	if err != nil || active {
		return false, err
	}
	var atsType string
	err = q.QueryRowContext(ctx, d.rebind(`SELECT ats_type FROM job_posts WHERE id = ?`), jobID).Scan(&atsType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read job: %w", err)
	}

	now := time.Now().UTC()
	_, err = q.ExecContext(ctx, d.rebind(
		`INSERT INTO applications (id, job_post_id, created_at, updated_at, status, ats_type)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		uuid.New(), jobID, now, now, string(AppQueued), atsType)
	if err != nil {
		return false, fmt.Errorf("failed to create application: %w", err)
	}
	return true, nil
}

// ListQueuedApplications returns queued applications with their jobs in the
// order they were queued. A limit of zero or less returns all of them.
func (d *DB) ListQueuedApplications(ctx context.Context, limit int) ([]QueuedApplication, error) {
	query := `SELECT ` + applicationColumns + `,
		j.id, j.url_hash, j.company, j.title, j.location, j.url, j.ats_type,
		j.fit_score, j.fit_reason, j.source_email_id, j.discovered_at, j.status
		FROM applications a
		JOIN job_posts j ON j.id = a.job_post_id
		WHERE a.status = ?
		ORDER BY a.seq`
	args := []any{string(AppQueued)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.conn.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []QueuedApplication
	for rows.Next() {
		var (
			j         JobPost
			jobATS    string
			jobStatus string
		)
		app, err := scanApplication(rows, &j.ID, &j.URLHash, &j.Company, &j.Title, &j.Location,
			&j.URL, &jobATS, &j.FitScore, &j.FitReason, &j.SourceEmailID, &j.DiscoveredAt, &jobStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queued application: %w", err)
		}
		j.ATSType = ats.Parse(jobATS)
		j.Status = JobStatus(jobStatus)
		out = append(out, QueuedApplication{Application: *app, Job: j})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queued applications: %w", err)
	}
	return out, nil
}

// GetApplication returns an application by ID, or nil when it does not exist.
func (d *DB) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	app, err := scanApplication(d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT `+applicationColumns+` FROM applications a WHERE a.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application %s: %w", id, err)
	}
	return app, nil
}

// FindApplication resolves a user-supplied reference: an application ID
// prefix first, then a job ID prefix, in which case the job's most recent
// application is returned. It returns nil when nothing matches.
func (d *DB) FindApplication(ctx context.Context, ref string) (*Application, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, nil
	}
	pattern := ref + "%"
	queries := []string{
		`SELECT ` + applicationColumns + ` FROM applications a
		 WHERE a.id LIKE ? ORDER BY a.seq DESC LIMIT 1`,
		`SELECT ` + applicationColumns + ` FROM applications a
		 WHERE a.job_post_id LIKE ? ORDER BY a.seq DESC LIMIT 1`,
	}
	for _, query := range queries {
		app, err := scanApplication(d.conn.QueryRowContext(ctx, d.rebind(query), pattern))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find application %q: %w", ref, err)
		}
		return app, nil
	}
	return nil, nil
}

// UpdateApplication moves an application to upd.Status and sets any non-nil
// fields. Submitting an application also marks its job skipped so it is never
// queued again; both writes share one transaction.
func (d *DB) UpdateApplication(ctx context.Context, id uuid.UUID, upd ApplicationUpdate) error {
	var answers *string
	if upd.AnswersUsed != nil {
		b, err := json.Marshal(upd.AnswersUsed)
		if err != nil {
			return fmt.Errorf("failed to encode answers_used: %w", err)
		}
		s := string(b)
		answers = &s
	}
	var atsType *string
	if upd.ATSType != nil {
		s := string(*upd.ATSType)
		atsType = &s
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var (
			current string
			jobID   uuid.UUID
		)
		err := tx.QueryRowContext(ctx, d.rebind(
			`SELECT status, job_post_id FROM applications WHERE id = ?`), id).Scan(&current, &jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("application %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read application: %w", err)
		}
		from := ApplicationStatus(current)
		if !CanTransitionApplication(from, upd.Status) {
			return fmt.Errorf("application %s %s -> %s: %w", id, from, upd.Status, ErrInvalidTransition)
		}

		_, err = tx.ExecContext(ctx, d.rebind(
			`UPDATE applications SET
				status = ?,
				updated_at = ?,
				run_id = COALESCE(?, run_id),
				ats_type = COALESCE(?, ats_type),
				answers_used = COALESCE(?, answers_used),
				llm_recommendation = COALESCE(?, llm_recommendation),
				llm_rationale = COALESCE(?, llm_rationale),
				error_message = COALESCE(?, error_message),
				screenshot_path = COALESCE(?, screenshot_path),
				html_snapshot_path = COALESCE(?, html_snapshot_path)
			 WHERE id = ?`),
			string(upd.Status), time.Now().UTC(), upd.RunID, atsType, answers,
			upd.LLMRecommendation, upd.LLMRationale, upd.ErrorMessage,
			upd.ScreenshotPath, upd.HTMLSnapshotPath, id)
		if err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		if upd.Status != AppSubmitted || from == AppSubmitted {
			return nil
		}
		job, err := d.getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job == nil || job.Status != JobQueued {
			return nil
		}
		return d.transitionJob(ctx, tx, jobID, JobSkipped, nil)
	})
}

// ResetApplication puts an application back in the queue and clears its
// error message. It fails with ErrActiveApplication when the job already has
// a different application in flight.
func (d *DB) ResetApplication(ctx context.Context, id uuid.UUID) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var jobID uuid.UUID
		err := tx.QueryRowContext(ctx, d.rebind(
			`SELECT job_post_id FROM applications WHERE id = ?`), id).Scan(&jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("application %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read application: %w", err)
		}
		active, err := d.hasActiveApplication(ctx, tx, jobID, &id)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("application %s: %w", id, ErrActiveApplication)
		}
		_, err = tx.ExecContext(ctx, d.rebind(
			`UPDATE applications SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`),
			string(AppQueued), time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to reset application: %w", err)
		}
		return nil
	})
}

// CountApplicationsByStatus returns the number of applications in each status.
func (d *DB) CountApplicationsByStatus(ctx context.Context) (map[ApplicationStatus]int, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[ApplicationStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan application count: %w", err)
		}
		counts[ApplicationStatus(status)] = n
	}
	return counts, rows.Err()
}
