package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/prompts"
)

// Question is a form question without a stored answer.
type Question struct {
	Label     string
	FieldType string
	Options   []string
	ATS       ats.Type
}

// SuggestAnswer drafts an answer to q for the user to confirm. It returns ""
// when the evaluator is disabled, the model fails, or the reply is not one
// of the listed options.
func (e *Evaluator) SuggestAnswer(ctx context.Context, q Question, profile *config.Profile) string {
	if !e.Enabled() {
		return ""
	}
	data := profileData(profile)
	data["ATS"] = orDefault(string(q.ATS), string(ats.Unknown))
	data["Label"] = q.Label
	data["FieldType"] = orDefault(q.FieldType, "text")
	data["Options"] = orDefault(strings.Join(q.Options, " | "), "(free text)")

	prompt, err := prompts.Render(prompts.EvaluationFile, "suggest-answer", data)
	if err != nil {
		e.logger.Warn("llm_suggest_failed", zap.Error(err))
		return ""
	}
	reply, err := e.client.GenerateContent(ctx, "", prompt, TierLite)
	if err != nil {
		e.logger.Warn("llm_suggest_failed", zap.String("label", q.Label), zap.Error(err))
		return ""
	}
	reply = strings.Trim(strings.TrimSpace(reply), `"`)
	if len(q.Options) == 0 {
		return reply
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt, reply) {
			return opt
		}
	}
	return ""
}
