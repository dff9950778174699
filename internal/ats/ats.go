// Package ats identifies the applicant tracking system behind a job URL.
package ats

import (
	"regexp"
	"strings"
)

// Type is an applicant tracking system identifier.
type Type string

const (
	// Ashby is the Ashby ATS (jobs.ashbyhq.com)
	Ashby Type = "ashby"
	// Greenhouse is the Greenhouse ATS
	Greenhouse Type = "greenhouse"
	// Lever is the Lever ATS
	Lever Type = "lever"
	// Workday is the Workday ATS
	Workday Type = "workday"
	// SmartRecruiters is the SmartRecruiters ATS
	SmartRecruiters Type = "smartrecruiters"
	// ICIMS is the iCIMS ATS
	ICIMS Type = "icims"
	// Taleo is the Oracle Taleo ATS
	Taleo Type = "taleo"
	// Workable is the Workable ATS
	Workable Type = "workable"
	// Breezy is the Breezy HR ATS
	Breezy Type = "breezy"
	// Simplify is the Simplify job aggregator
	Simplify Type = "simplify"
	// Unknown is an unrecognized ATS
	Unknown Type = "unknown"
)

// rule maps URL substrings to a Type. Rules are evaluated in order.
type rule struct {
	typ      Type
	patterns []string
}

var rules = []rule{
	{Ashby, []string{"ashbyhq.com", "jobs.ashby"}},
	{Greenhouse, []string{"greenhouse.io", "grnh.se", "gh_jid="}},
	{Lever, []string{"lever.co"}},
	{Workday, []string{"myworkdayjobs.com", "workday.com"}},
	{SmartRecruiters, []string{"smartrecruiters.com"}},
	{ICIMS, []string{"icims.com", "icims=1"}},
	{Taleo, []string{"taleo.net"}},
	{Workable, []string{"workable.com"}},
	{Breezy, []string{"breezy.hr"}},
	{Simplify, []string{"simplify.jobs"}},
}

// All returns every known Type in classification order, followed by Unknown.
func All() []Type {
	types := make([]Type, 0, len(rules)+1)
	for _, r := range rules {
		types = append(types, r.typ)
	}
	return append(types, Unknown)
}

// Classify identifies the ATS from a URL using case-insensitive substring
// matching. The first matching rule wins; unmatched URLs are Unknown.
func Classify(rawURL string) Type {
	lower := strings.ToLower(rawURL)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return r.typ
			}
		}
	}
	return Unknown
}

// Parse converts a stored string back to a Type. Unrecognized values are Unknown.
func Parse(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if t == known {
			return t
		}
	}
	return Unknown
}

// RequiresAccount reports whether applying through this ATS requires creating
// a candidate account first. These postings cannot be auto-applied.
func (t Type) RequiresAccount() bool {
	switch t {
	case Workday, Taleo:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// domainPattern matches hosts that serve job applications, including boards
// that Classify reports as Unknown.
var domainPattern = regexp.MustCompile(
	`(?i)(ashbyhq\.com|greenhouse\.io|lever\.co|myworkdayjobs\.com|` +
		`smartrecruiters\.com|icims\.com|taleo\.net|grnh\.se|` +
		`breezy\.hr|jobvite\.com|bamboohr\.com|workable\.com|simplify\.jobs)`)

// IsJobBoardURL reports whether the URL points at a known job board domain.
func IsJobBoardURL(rawURL string) bool {
	return domainPattern.MatchString(rawURL)
}
