package db

import (
	"fmt"
	"strings"
)

// JobStatus is the lifecycle state of a job post.
type JobStatus string

const (
	JobDiscovered  JobStatus = "discovered"
	JobQueued      JobStatus = "queued"
	JobFilteredOut JobStatus = "filtered_out"
	JobSkipped     JobStatus = "skipped"
)

// jobTransitions defines every valid job status change. Discovered jobs are
// scored into exactly one of queued or filtered_out; queued jobs become
// skipped once applied to so they are never queued again.
var jobTransitions = map[JobStatus][]JobStatus{
	JobDiscovered: {JobQueued, JobFilteredOut},
	JobQueued:     {JobSkipped},
}

// AllJobStatuses returns job statuses in lifecycle order.
func AllJobStatuses() []JobStatus {
	return []JobStatus{JobDiscovered, JobQueued, JobFilteredOut, JobSkipped}
}

// ParseJobStatus converts a string to a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range AllJobStatuses() {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid job status: %q", s)
}

// CanTransitionJob reports whether a job may move from one status to another.
func CanTransitionJob(from, to JobStatus) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ApplicationStatus is the lifecycle state of an application attempt.
type ApplicationStatus string

const (
	AppQueued      ApplicationStatus = "queued"
	AppStarted     ApplicationStatus = "started"
	AppFilled      ApplicationStatus = "filled"
	AppNeedsReview ApplicationStatus = "needs_review"
	AppSubmitted   ApplicationStatus = "submitted"
	AppSkipped     ApplicationStatus = "skipped"
	AppError       ApplicationStatus = "error"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	AppQueued:      {AppStarted, AppSkipped, AppError},
	AppStarted:     {AppFilled, AppNeedsReview, AppSkipped, AppError},
	AppFilled:      {AppNeedsReview, AppSubmitted, AppSkipped, AppError},
	AppNeedsReview: {AppSubmitted, AppSkipped, AppError},
}

// AllApplicationStatuses returns application statuses in lifecycle order.
func AllApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		AppQueued, AppStarted, AppFilled, AppNeedsReview,
		AppSubmitted, AppSkipped, AppError,
	}
}

// ActiveApplicationStatuses are statuses of an application still in flight.
// A job has at most one application in any of these.
func ActiveApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{AppQueued, AppStarted, AppFilled, AppNeedsReview}
}

// IsActive reports whether the application is still in flight.
func (s ApplicationStatus) IsActive() bool {
	for _, a := range ActiveApplicationStatuses() {
		if s == a {
			return true
		}
	}
	return false
}

// CanTransitionApplication reports whether an application may move between
// statuses. Resetting to queued is a separate operation and is not covered.
func CanTransitionApplication(from, to ApplicationStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range applicationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EmailStatus tracks processing of an ingested email.
type EmailStatus string

const (
	EmailRaw    EmailStatus = "raw"
	EmailParsed EmailStatus = "parsed"
	EmailFailed EmailStatus = "failed"
)

// RunStatus is the state of an application run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
)
