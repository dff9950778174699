// Package scoring computes a rule-based fit score for job postings.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/jobly/internal/ats"
)

// DefaultMinScore is the queueing threshold used when none is configured.
const DefaultMinScore = 0.30

// Keyword contribution: the first match is worth keywordBase, each further
// match adds keywordStep, capped at keywordCap.
const (
	keywordBase   = 0.35
	keywordStep   = 0.05
	keywordCap    = 0.50
	locationBonus = 0.05
	maxReasonKeys = 3
)

// atsBoost rewards quick-apply systems.
var atsBoost = map[ats.Type]float64{
	ats.Ashby:      0.20,
	ats.Greenhouse: 0.10,
	ats.Lever:      0.10,
}

// Config holds the scoring inputs that come from user configuration.
type Config struct {
	TitleKeywords      []string
	MinScore           float64
	PreferredATS       []string
	PreferredLocations []string
	ExcludedLocations  []string
}

// DefaultTitleKeywords returns the keywords used when none are configured.
func DefaultTitleKeywords() []string {
	return []string{
		"intern", "internship", "swe", "software engineer",
		"backend", "platform", "infra", "infrastructure",
		"data", "distributed", "database", "systems",
	}
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		TitleKeywords: DefaultTitleKeywords(),
		MinScore:      DefaultMinScore,
		PreferredATS:  []string{string(ats.Ashby), string(ats.Greenhouse), string(ats.Lever)},
	}
}

// Result is the outcome of scoring a single job.
type Result struct {
	Score       float64
	Reason      string
	ShouldQueue bool
}

// ATSBoost returns the fixed score boost for an ATS type.
func ATSBoost(t ats.Type) float64 {
	return atsBoost[t]
}

// Score computes the fit of a job against cfg. The company does not
// currently affect the score. Reason fragments are joined
// with "; " in evaluation order. An excluded location short-circuits to 0.
func Score(title, company, location string, atsType ats.Type, cfg Config) Result {
	var reasons []string
	score := 0.0

	titleLower := strings.ToLower(title)
	locationLower := strings.ToLower(location)

	var matched []string
	for _, kw := range cfg.TitleKeywords {
		if kw != "" && strings.Contains(titleLower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		score += math.Min(keywordCap, keywordBase+keywordStep*float64(len(matched)-1))
		shown := matched
		if len(shown) > maxReasonKeys {
			shown = shown[:maxReasonKeys]
		}
		reasons = append(reasons, "title matches: "+strings.Join(shown, ", "))
	} else {
		reasons = append(reasons, "no title keyword match")
	}

	if boost, ok := atsBoost[atsType]; ok {
		score += boost
		reasons = append(reasons, fmt.Sprintf("preferred ATS (%s +%.0f%%)", atsType, boost*100))
	}

	for _, excl := range cfg.ExcludedLocations {
		if excl != "" && strings.Contains(locationLower, strings.ToLower(excl)) {
			reasons = append(reasons, "excluded location: "+excl)
			return Result{
				Score:       0,
				Reason:      strings.Join(reasons, "; "),
				ShouldQueue: false,
			}
		}
	}

	isRemote := strings.Contains(locationLower, "remote")
	if len(cfg.PreferredLocations) > 0 {
		for _, pref := range cfg.PreferredLocations {
			if (pref != "" && strings.Contains(locationLower, strings.ToLower(pref))) || isRemote {
				score += locationBonus
				reasons = append(reasons, fmt.Sprintf("preferred location (%s)", pref))
				break
			}
		}
	} else if isRemote {
		score += locationBonus
		reasons = append(reasons, "remote")
	}

	score = math.Min(1.0, math.Round(score*1000)/1000)
	return Result{
		Score:       score,
		Reason:      strings.Join(reasons, "; "),
		ShouldQueue: score >= cfg.MinScore,
	}
}
