package db

import "strings"

// baseSchema is written once for both backends. {{seq}} and {{ts}} are replaced with
// dialect-specific column types by schemaStatements.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS emails (
		seq {{seq}},
		id TEXT NOT NULL UNIQUE,
		gmail_id TEXT NOT NULL UNIQUE,
		thread_id TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		sender TEXT NOT NULL DEFAULT '',
		received_at {{ts}} NOT NULL,
		processed_at {{ts}},
		raw_html TEXT,
		status TEXT NOT NULL DEFAULT 'raw'
			CHECK (status IN ('raw', 'parsed', 'failed'))
	)`,
	`CREATE TABLE IF NOT EXISTS job_posts (
		seq {{seq}},
		id TEXT NOT NULL UNIQUE,
		url_hash TEXT NOT NULL UNIQUE,
		company TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT,
		url TEXT NOT NULL,
		ats_type TEXT NOT NULL DEFAULT 'unknown',
		fit_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		fit_reason TEXT NOT NULL DEFAULT '',
		source_email_id TEXT REFERENCES emails(id),
		discovered_at {{ts}} NOT NULL,
		status TEXT NOT NULL DEFAULT 'discovered'
			CHECK (status IN ('discovered', 'queued', 'filtered_out', 'skipped'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_posts_status ON job_posts(status)`,
	`CREATE TABLE IF NOT EXISTS application_runs (
		seq {{seq}},
		id TEXT NOT NULL UNIQUE,
		started_at {{ts}} NOT NULL,
		finished_at {{ts}},
		status TEXT NOT NULL DEFAULT 'running'
			CHECK (status IN ('running', 'completed', 'interrupted')),
		jobs_processed INTEGER NOT NULL DEFAULT 0,
		jobs_submitted INTEGER NOT NULL DEFAULT 0,
		jobs_skipped INTEGER NOT NULL DEFAULT 0,
		jobs_errored INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		seq {{seq}},
		id TEXT NOT NULL UNIQUE,
		job_post_id TEXT NOT NULL REFERENCES job_posts(id),
		run_id TEXT REFERENCES application_runs(id),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued'
			CHECK (status IN ('queued', 'started', 'filled', 'needs_review', 'submitted', 'skipped', 'error')),
		ats_type TEXT NOT NULL DEFAULT 'unknown',
		answers_used TEXT,
		llm_recommendation TEXT,
		llm_rationale TEXT,
		error_message TEXT,
		screenshot_path TEXT,
		html_snapshot_path TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_job ON applications(job_post_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_one_active ON applications(job_post_id)
		WHERE status IN ('queued', 'started', 'filled', 'needs_review')`,
	`CREATE TABLE IF NOT EXISTS question_answers (
		seq {{seq}},
		id TEXT NOT NULL UNIQUE,
		question_label TEXT NOT NULL,
		ats_type TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		UNIQUE (question_label, ats_type)
	)`,
}

func schemaStatements(dialect Dialect) []string {
	var r *strings.Replacer
	switch dialect {
	case DialectPostgres:
		r = strings.NewReplacer("{{seq}}", "BIGSERIAL PRIMARY KEY", "{{ts}}", "TIMESTAMPTZ")
	default:
		r = strings.NewReplacer("{{seq}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{ts}}", "TIMESTAMP")
	}
	out := make([]string, len(baseSchema))
	for i, stmt := range baseSchema {
		out[i] = r.Replace(stmt)
	}
	return out
}
