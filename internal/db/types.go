package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobly/internal/ats"
)

// NewJob is the input for InsertJobIfNew.
type NewJob struct {
	URLHash       string
	Company       string
	Title         string
	Location      string // empty when unknown
	URL           string
	ATSType       ats.Type
	SourceEmailID *uuid.UUID
	DiscoveredAt  time.Time
}

// JobPost is a deduplicated job listing.
type JobPost struct {
	ID            uuid.UUID  `json:"id"`
	URLHash       string     `json:"url_hash"`
	Company       string     `json:"company"`
	Title         string     `json:"title"`
	Location      *string    `json:"location,omitempty"`
	URL           string     `json:"url"`
	ATSType       ats.Type   `json:"ats_type"`
	FitScore      float64    `json:"fit_score"`
	FitReason     string     `json:"fit_reason"`
	SourceEmailID *uuid.UUID `json:"source_email_id,omitempty"`
	DiscoveredAt  time.Time  `json:"discovered_at"`
	Status        JobStatus  `json:"status"`
}

// LocationOrEmpty returns the location or "" when unknown.
func (j *JobPost) LocationOrEmpty() string {
	if j.Location == nil {
		return ""
	}
	return *j.Location
}

// Score is a fit score with its human-readable reason.
type Score struct {
	Value  float64
	Reason string
}

// Decision is the outcome of scoring one discovered job.
type Decision struct {
	JobID uuid.UUID
	Score Score
	Queue bool
}

// Application is a single attempt to apply to a job.
type Application struct {
	ID                uuid.UUID         `json:"id"`
	JobPostID         uuid.UUID         `json:"job_post_id"`
	RunID             *uuid.UUID        `json:"run_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Status            ApplicationStatus `json:"status"`
	ATSType           ats.Type          `json:"ats_type"`
	AnswersUsed       map[string]string `json:"answers_used,omitempty"`
	LLMRecommendation *string           `json:"llm_recommendation,omitempty"`
	LLMRationale      *string           `json:"llm_rationale,omitempty"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
	ScreenshotPath    *string           `json:"screenshot_path,omitempty"`
	HTMLSnapshotPath  *string           `json:"html_snapshot_path,omitempty"`
}

// ApplicationUpdate changes an application's status and optionally other
// fields. Nil fields are left unchanged.
type ApplicationUpdate struct {
	Status            ApplicationStatus
	RunID             *uuid.UUID
	ATSType           *ats.Type
	AnswersUsed       map[string]string
	LLMRecommendation *string
	LLMRationale      *string
	ErrorMessage      *string
	ScreenshotPath    *string
	HTMLSnapshotPath  *string
}

// QueuedApplication pairs a queued application with its job.
type QueuedApplication struct {
	Application Application
	Job         JobPost
}

// Email is the audit record of an ingested digest email.
type Email struct {
	ID          uuid.UUID   `json:"id"`
	GmailID     string      `json:"gmail_id"`
	ThreadID    string      `json:"thread_id"`
	Subject     string      `json:"subject"`
	Sender      string      `json:"sender"`
	ReceivedAt  time.Time   `json:"received_at"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
	RawHTML     string      `json:"-"`
	Status      EmailStatus `json:"status"`
}

// Run groups the applications processed by one invocation of the runner.
type Run struct {
	ID            uuid.UUID  `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Status        RunStatus  `json:"status"`
	JobsProcessed int        `json:"jobs_processed"`
	JobsSubmitted int        `json:"jobs_submitted"`
	JobsSkipped   int        `json:"jobs_skipped"`
	JobsErrored   int        `json:"jobs_errored"`
}

// QuestionAnswer is a remembered answer to a custom application question.
type QuestionAnswer struct {
	ID            uuid.UUID `json:"id"`
	QuestionLabel string    `json:"question_label"`
	ATSType       ats.Type  `json:"ats_type"`
	Answer        string    `json:"answer"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
