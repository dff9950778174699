package apply

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/llm"
)

// fakePage is an in-memory Page keyed by exact selector strings.
type fakePage struct {
	visible   map[string]bool
	exists    map[string]bool
	fields    []Field
	fieldsErr error
	html      string
	shotErr   error
	onClick   func(sel string)

	navigated []string
	filled    map[string]string
	chosen    map[string]string
	uploaded  map[string]string
	clicked   []string
	scrolled  bool
	closed    bool
}

func newFakePage(visible ...string) *fakePage {
	p := &fakePage{
		visible:  make(map[string]bool),
		exists:   make(map[string]bool),
		filled:   make(map[string]string),
		chosen:   make(map[string]string),
		uploaded: make(map[string]string),
		html:     "<html><body><main>Build things.</main></body></html>",
	}
	for _, sel := range visible {
		p.visible[sel] = true
	}
	return p
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) WaitFor(ctx context.Context, sel string, _ time.Duration) bool {
	return p.Exists(ctx, sel)
}

func (p *fakePage) Visible(_ context.Context, sel string) bool { return p.visible[sel] }

func (p *fakePage) Exists(_ context.Context, sel string) bool { return p.exists[sel] || p.visible[sel] }

func (p *fakePage) Fill(_ context.Context, sel, value string) error {
	p.filled[sel] = value
	return nil
}

func (p *fakePage) Choose(_ context.Context, sel, value string) error {
	p.chosen[sel] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	p.clicked = append(p.clicked, sel)
	if p.onClick != nil {
		p.onClick(sel)
	}
	return nil
}

func (p *fakePage) Upload(_ context.Context, sel, path string) error {
	p.uploaded[sel] = path
	return nil
}

func (p *fakePage) Fields(context.Context, string) ([]Field, error) { return p.fields, p.fieldsErr }

func (p *fakePage) ScrollToBottom(context.Context) error {
	p.scrolled = true
	return nil
}

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("png"), nil
}

func (p *fakePage) Pause(context.Context, time.Duration) {}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// mapResolver answers from a fixed map.
type mapResolver struct {
	answers map[string]string
	err     error
	asked   []string
}

func (r *mapResolver) Resolve(_ context.Context, _ ats.Type, q UnknownQuestion) (string, error) {
	r.asked = append(r.asked, q.Label)
	return r.answers[q.Label], r.err
}

// fakePrompter scripts the user's side of a run.
type fakePrompter struct {
	start      bool
	guided     bool
	submit     bool
	submitErr  error
	answers    map[string]string
	askErr     error
	asked      []string
	suggested  map[string]string
	waited     int
	evaluation *llm.Evaluation
}

func (p *fakePrompter) Ask(_ context.Context, _ ats.Type, q UnknownQuestion, suggestion string) (string, error) {
	p.asked = append(p.asked, q.Label)
	if p.suggested == nil {
		p.suggested = make(map[string]string)
	}
	p.suggested[q.Label] = suggestion
	return p.answers[q.Label], p.askErr
}

func (p *fakePrompter) ConfirmStart(context.Context, db.JobPost) (bool, error) { return p.start, nil }

func (p *fakePrompter) ConfirmGuided(context.Context, db.JobPost) (bool, error) { return p.guided, nil }

func (p *fakePrompter) WaitForReview(context.Context, db.JobPost) error {
	p.waited++
	return nil
}

func (p *fakePrompter) ConfirmSubmit(_ context.Context, _ db.JobPost, eval *llm.Evaluation) (bool, error) {
	p.evaluation = eval
	return p.submit, p.submitErr
}

// fakeAdapter records the steps the runner drives.
type fakeAdapter struct {
	atsType   ats.Type
	guided    bool
	result    FillResult
	openErr   error
	fillErr   error
	submitErr error
	steps     []string
}

func (a *fakeAdapter) ATS() ats.Type { return a.atsType }
func (a *fakeAdapter) Guided() bool  { return a.guided }

func (a *fakeAdapter) Open(context.Context, string) error {
	a.steps = append(a.steps, "open")
	return a.openErr
}

func (a *fakeAdapter) Fill(context.Context, *config.Profile, string, Resolver) (FillResult, error) {
	a.steps = append(a.steps, "fill")
	return a.result, a.fillErr
}

func (a *fakeAdapter) ReachReview(context.Context) error {
	a.steps = append(a.steps, "review")
	return nil
}

func (a *fakeAdapter) Submit(context.Context) error {
	a.steps = append(a.steps, "submit")
	return a.submitErr
}

// fakeLLM returns a canned reply.
type fakeLLM struct {
	reply string
}

func (f *fakeLLM) GenerateContent(context.Context, string, string, llm.ModelTier) (string, error) {
	return f.reply, nil
}

func (f *fakeLLM) GenerateJSON(context.Context, string, string, llm.ModelTier) (string, error) {
	return f.reply, nil
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }

var errBoom = errors.New("boom")

func testProfile() *config.Profile {
	return &config.Profile{
		Personal: config.Personal{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Email:       "ada@example.com",
			Phone:       "555-0100",
			LinkedInURL: "https://linkedin.com/in/ada",
		},
		WorkAuthorization: config.WorkAuthorization{RequiresSponsorship: false},
	}
}
