package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/logger"
	"github.com/jonathan/jobly/internal/prompts"
	"github.com/jonathan/jobly/internal/schemas"
)

// Recommendation is the evaluator's advice on a pending submission.
type Recommendation string

const (
	RecommendSubmit Recommendation = "RECOMMEND_SUBMIT"
	RecommendSkip   Recommendation = "RECOMMEND_SKIP"
	// RecommendNA means no evaluation took place.
	RecommendNA Recommendation = "NA"
)

// Confidence levels reported with a recommendation.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// maxDescriptionRunes bounds the job description excerpt sent to the model.
const maxDescriptionRunes = 4000

// Request carries everything the evaluator sees about one application.
type Request struct {
	Company     string
	Title       string
	Location    string
	ATS         ats.Type
	FitScore    float64
	FitReason   string
	Description string
	Profile     *config.Profile
	// SubmittedFields are the standard fields filled on the form.
	SubmittedFields map[string]string
	// CustomAnswers are answers to site-specific questions.
	CustomAnswers map[string]string
}

// Evaluation is the evaluator's verdict.
type Evaluation struct {
	Recommendation Recommendation `json:"recommendation"`
	Rationale      string         `json:"rationale"`
	RedFlags       []string       `json:"red_flags"`
	Confidence     string         `json:"confidence"`
}

// NotAvailable returns the NA evaluation with the given rationale.
func NotAvailable(rationale string) Evaluation {
	return Evaluation{
		Recommendation: RecommendNA,
		Rationale:      rationale,
		RedFlags:       []string{},
		Confidence:     ConfidenceLow,
	}
}

// Evaluator asks the model whether an application is worth submitting. It
// never fails: any problem yields an NA evaluation.
type Evaluator struct {
	client Client
	tier   ModelTier
	logger *zap.Logger
}

// NewEvaluator creates an evaluator. A nil client produces NA for every
// request.
func NewEvaluator(client Client, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, tier: TierStandard, logger: logger}
}

// Enabled reports whether evaluations call the model.
func (e *Evaluator) Enabled() bool {
	return e != nil && e.client != nil
}

// Evaluate returns the model's recommendation for req.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Evaluation {
	if !e.Enabled() {
		if e != nil {
			e.logger.Warn("llm_api_key_missing")
		}
		return NotAvailable("LLM evaluation skipped: API key not set.")
	}
	log := logger.WithFields(e.logger, logger.JobFields(req.Company, req.Title, string(req.ATS))...)

	system, err := prompts.Get(prompts.EvaluationFile, "evaluation-system")
	if err != nil {
		return e.failed(log, err)
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return e.failed(log, err)
	}

	raw, err := e.client.GenerateJSON(ctx, system, prompt, e.tier)
	if err != nil {
		return e.failed(log, err)
	}
	result, err := ParseEvaluation(raw)
	if err != nil {
		log.Debug("llm_raw_response", zap.String("raw", logger.TruncateForLog(raw, 500)))
		return e.failed(log, err)
	}

	log.Info("llm_evaluation_complete",
		zap.String("recommendation", string(result.Recommendation)),
		zap.String("confidence", result.Confidence),
	)
	return result
}

func (e *Evaluator) failed(log *zap.Logger, err error) Evaluation {
	log.Warn("llm_evaluation_failed", zap.Error(err))
	return NotAvailable(fmt.Sprintf("LLM evaluation failed: %v", err))
}

// ParseEvaluation decodes a model response, checking it against the
// evaluation schema. Missing confidence defaults to low.
func ParseEvaluation(raw string) (Evaluation, error) {
	cleaned := CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.Evaluation, cleaned); err != nil {
		return Evaluation{}, fmt.Errorf("invalid evaluation response: %w", err)
	}
	var result Evaluation
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return Evaluation{}, fmt.Errorf("failed to decode evaluation response: %w", err)
	}
	if result.RedFlags == nil {
		result.RedFlags = []string{}
	}
	if result.Confidence == "" {
		result.Confidence = ConfidenceLow
	}
	return result, nil
}

// BuildPrompt renders the evaluation prompt for req.
func BuildPrompt(req Request) (string, error) {
	data := map[string]string{
		"Company":         req.Company,
		"Title":           req.Title,
		"Location":        orDefault(req.Location, "Not specified"),
		"ATS":             orDefault(string(req.ATS), string(ats.Unknown)),
		"FitScore":        strconv.FormatFloat(req.FitScore, 'f', 2, 64),
		"FitReason":       req.FitReason,
		"Description":     orDefault(truncateRunes(strings.TrimSpace(req.Description), maxDescriptionRunes), "(not available)"),
		"SubmittedFields": formatFields(req.SubmittedFields, "  %s: %s"),
		"CustomAnswers":   formatFields(req.CustomAnswers, "  Q: %s\n  A: %s"),
	}
	for k, v := range profileData(req.Profile) {
		data[k] = v
	}
	return prompts.Render(prompts.EvaluationFile, "evaluate-application", data)
}

// profileData flattens the parts of a profile the prompts mention.
func profileData(p *config.Profile) map[string]string {
	if p == nil {
		p = &config.Profile{}
	}
	edu := p.CurrentEducation()
	gpa := "N/A"
	if edu.GPA > 0 {
		scale := edu.GPAScale
		if scale == 0 {
			scale = 4.0
		}
		gpa = strconv.FormatFloat(edu.GPA, 'f', -1, 64) + "/" + strconv.FormatFloat(scale, 'f', 1, 64)
	}
	return map[string]string{
		"Name":        p.FullName(),
		"Degree":      edu.Degree,
		"Field":       edu.FieldOfStudy,
		"Institution": edu.Institution,
		"GradDate":    edu.EndDate,
		"GPA":         gpa,
		"Authorized":  strconv.FormatBool(p.WorkAuthorization.IsAuthorizedUS()),
		"Sponsorship": strconv.FormatBool(p.WorkAuthorization.RequiresSponsorship),
	}
}

// formatFields renders a map as sorted lines, or "  (none)" when empty.
func formatFields(fields map[string]string, format string) string {
	if len(fields) == 0 {
		return "  (none)"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf(format, k, fields[k]))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
