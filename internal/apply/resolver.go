package apply

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/llm"
)

// AnswerStore remembers answers to custom questions across runs.
type AnswerStore interface {
	FindCachedAnswer(ctx context.Context, label string, atsType ats.Type) (*db.QuestionAnswer, error)
	UpsertAnswer(ctx context.Context, label string, atsType ats.Type, answer string) error
}

// Asker asks the user to answer a question. suggestion is a proposed
// default, possibly empty.
type Asker interface {
	Ask(ctx context.Context, atsType ats.Type, q UnknownQuestion, suggestion string) (string, error)
}

// Suggester drafts answers; *llm.Evaluator implements it.
type Suggester interface {
	SuggestAnswer(ctx context.Context, q llm.Question, profile *config.Profile) string
}

// QuestionResolver answers questions from the run cache, then the answer
// store, then the user. New answers are saved for later runs.
type QuestionResolver struct {
	store     AnswerStore
	asker     Asker
	suggester Suggester
	profile   *config.Profile
	cache     map[string]string
	logger    *zap.Logger
}

var _ Resolver = (*QuestionResolver)(nil)

// NewQuestionResolver creates a resolver. suggester may be nil.
func NewQuestionResolver(store AnswerStore, asker Asker, suggester Suggester, profile *config.Profile, logger *zap.Logger) *QuestionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionResolver{
		store:     store,
		asker:     asker,
		suggester: suggester,
		profile:   profile,
		cache:     make(map[string]string),
		logger:    logger,
	}
}

func cacheKey(atsType ats.Type, label string) string {
	return string(atsType) + "::" + db.NormalizeLabel(label)
}

// Cached returns the answer given this run, or "".
func (r *QuestionResolver) Cached(label string, atsType ats.Type) string {
	return r.cache[cacheKey(atsType, label)]
}

func (r *QuestionResolver) Resolve(ctx context.Context, atsType ats.Type, q UnknownQuestion) (string, error) {
	key := cacheKey(atsType, q.Label)
	if answer, ok := r.cache[key]; ok {
		r.logger.Debug("answer_from_run_cache", zap.String("label", q.Label))
		return answer, nil
	}

	saved, err := r.store.FindCachedAnswer(ctx, q.Label, atsType)
	if err != nil {
		return "", err
	}
	if saved != nil {
		r.logger.Debug("answer_from_store", zap.String("label", q.Label))
		r.cache[key] = saved.Answer
		return saved.Answer, nil
	}

	var suggestion string
	if r.suggester != nil {
		suggestion = r.suggester.SuggestAnswer(ctx, llm.Question{
			Label:     q.Label,
			FieldType: q.FieldType,
			Options:   q.Options,
			ATS:       atsType,
		}, r.profile)
	}

	answer, err := r.asker.Ask(ctx, atsType, q, suggestion)
	if err != nil {
		return "", fmt.Errorf("failed to ask for answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer != "" {
		if err := r.store.UpsertAnswer(ctx, q.Label, atsType, answer); err != nil {
			return "", err
		}
	}
	r.cache[key] = answer
	return answer, nil
}
