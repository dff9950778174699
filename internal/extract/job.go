// Package extract turns job digest emails and job feed tables into
// normalized, deduplicated job postings.
package extract

import (
	"time"

	"github.com/jonathan/jobly/internal/ats"
)

// Job is a normalized job posting ready for storage.
type Job struct {
	Company       string
	Title         string
	URL           string // canonical URL
	URLHash       string // SHA-256 hex of URL
	ATSType       ats.Type
	Location      string // empty when unknown
	SourceEmailID string // empty when not from an email
	DiscoveredAt  time.Time
}

// candidate is a raw (company, title, url, location) tuple produced by a
// strategy before canonicalization.
type candidate struct {
	company  string
	title    string
	url      string
	location string
}
