package apply

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
)

// UnknownQuestion is a form field the adapter could not fill from the
// profile.
type UnknownQuestion struct {
	Label     string
	FieldType string
	Options   []string
	// Context is surrounding page text shown to the user.
	Context  string
	Selector string
	// Answer is what was entered, empty when the question was left blank.
	Answer string
}

// FillResult summarizes what an adapter filled.
type FillResult struct {
	FilledFields     []string
	SkippedFields    []string
	UnknownQuestions []UnknownQuestion
}

// Answers returns the record of answers used: standard fields map to
// "filled", custom questions to the answer given.
func (r FillResult) Answers() map[string]string {
	out := make(map[string]string, len(r.FilledFields)+len(r.UnknownQuestions))
	for _, f := range r.FilledFields {
		out[f] = "filled"
	}
	for _, q := range r.UnknownQuestions {
		if q.Answer != "" {
			out[q.Label] = q.Answer
		}
	}
	return out
}

// CustomAnswers returns the answered custom questions by label.
func (r FillResult) CustomAnswers() map[string]string {
	out := make(map[string]string)
	for _, q := range r.UnknownQuestions {
		if q.Answer != "" {
			out[q.Label] = q.Answer
		}
	}
	return out
}

// Resolver answers questions the profile does not cover. An empty answer
// leaves the field blank.
type Resolver interface {
	Resolve(ctx context.Context, atsType ats.Type, q UnknownQuestion) (string, error)
}

// Adapter fills one ATS's application form. The runner calls Open, Fill,
// ReachReview and, only after the user confirms, Submit.
type Adapter interface {
	ATS() ats.Type
	// Open navigates to the application and waits for the form.
	Open(ctx context.Context, url string) error
	Fill(ctx context.Context, profile *config.Profile, resume string, resolver Resolver) (FillResult, error)
	// ReachReview advances to the last step before submission.
	ReachReview(ctx context.Context) error
	Submit(ctx context.Context) error
}

// GuidedAdapter is implemented by adapters that only partially automate a
// form; the user completes it in the browser and reaches the review step.
type GuidedAdapter interface {
	Adapter
	Guided() bool
}

// IsGuided reports whether a needs the user to drive the form.
func IsGuided(a Adapter) bool {
	g, ok := a.(GuidedAdapter)
	return ok && g.Guided()
}

// Factory builds an adapter bound to a page.
type Factory func(page Page, logger *zap.Logger) Adapter

// Registry maps ATS types to adapter factories, falling back to the generic
// adapter for anything unregistered.
type Registry struct {
	order     []ats.Type
	factories map[ats.Type]Factory
	fallback  Factory
}

// NewRegistry returns a registry with every built-in adapter, ordered by
// reliability.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[ats.Type]Factory),
		fallback:  NewGeneric,
	}
	r.Register(ats.Ashby, NewAshby)
	r.Register(ats.Greenhouse, NewGreenhouse)
	r.Register(ats.Lever, NewLever)
	r.Register(ats.Workday, NewWorkday)
	return r
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t ats.Type, f Factory) {
	if _, ok := r.factories[t]; !ok {
		r.order = append(r.order, t)
	}
	r.factories[t] = f
}

// Supported returns the ATS types with a dedicated adapter.
func (r *Registry) Supported() []ats.Type {
	return append([]ats.Type(nil), r.order...)
}

// Has reports whether t has a dedicated adapter.
func (r *Registry) Has(t ats.Type) bool {
	_, ok := r.factories[t]
	return ok
}

// Adapter returns the adapter for t, or the generic one.
func (r *Registry) Adapter(t ats.Type, page Page, logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if f, ok := r.factories[t]; ok {
		return f(page, logger)
	}
	return r.fallback(page, logger)
}

// ForURL classifies url and returns its adapter.
func (r *Registry) ForURL(url string, page Page, logger *zap.Logger) Adapter {
	return r.Adapter(ats.Classify(url), page, logger)
}
