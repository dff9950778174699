package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
)

// ErrSubmitNotFound is returned when no submit button is visible.
var ErrSubmitNotFound = errors.New("submit button not found")

// fieldKind selects how a field value is entered.
type fieldKind int

const (
	kindText fieldKind = iota
	// kindChoice picks an option of a select or radio group.
	kindChoice
)

// fieldSpec maps one profile value onto candidate selectors, tried in order.
type fieldSpec struct {
	name      string
	kind      fieldKind
	value     func(*config.Profile) string
	optional  bool
	selectors []string
}

// formSpec describes one ATS's application form.
type formSpec struct {
	ats ats.Type
	// applySuffix is appended to listing URLs to reach the form.
	applySuffix string
	// settle is the pause after navigation.
	settle       time.Duration
	ready        string
	readyTimeout time.Duration
	// apply buttons reveal the form from the listing page.
	apply  []string
	fields []fieldSpec
	resume []string
	// questionScope limits the custom question scan; "" scans the page.
	questionScope string
	// noQuestions disables the custom question scan.
	noQuestions bool
	// handled are label keywords of questions covered by fields.
	handled  []string
	next     []string
	maxSteps int
	// review selectors appear once the final step is reached.
	review []string
	submit []string
	guided bool
}

// formAdapter fills a form described by a formSpec.
type formAdapter struct {
	spec   formSpec
	page   Page
	logger *zap.Logger
}

func newFormAdapter(spec formSpec, page Page, logger *zap.Logger) *formAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &formAdapter{
		spec:   spec,
		page:   page,
		logger: logger.With(zap.String("ats", string(spec.ats))),
	}
}

// cookieButtons dismiss consent banners.
var cookieButtons = []string{
	buttonText("button", "Accept"),
	buttonText("button", "I Agree"),
	buttonText("button", "Got it"),
	"[id*='cookie'] button",
	"[class*='cookie'] button",
}

// Shared profile accessors.
func firstName(p *config.Profile) string { return p.Personal.FirstName }
func lastName(p *config.Profile) string  { return p.Personal.LastName }
func fullName(p *config.Profile) string  { return p.FullName() }
func email(p *config.Profile) string     { return p.Personal.Email }
func phone(p *config.Profile) string     { return p.Personal.Phone }
func location(p *config.Profile) string  { return p.Personal.Location.CityState() }
func linkedIn(p *config.Profile) string  { return p.Personal.LinkedInURL }
func gitHub(p *config.Profile) string    { return p.Personal.GitHubURL }
func website(p *config.Profile) string   { return p.Personal.WebsiteURL }
func school(p *config.Profile) string    { return p.CurrentEducation().Institution }

func authorized(p *config.Profile) string {
	return yesNo(p.WorkAuthorization.IsAuthorizedUS())
}

func sponsorship(p *config.Profile) string {
	return yesNo(p.WorkAuthorization.RequiresSponsorship)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// orElse returns a profile accessor that falls back to def.
func orElse(get func(*config.Profile) string, def string) func(*config.Profile) string {
	return func(p *config.Profile) string {
		if v := get(p); v != "" {
			return v
		}
		return def
	}
}

func (a *formAdapter) ATS() ats.Type { return a.spec.ats }

func (a *formAdapter) Guided() bool { return a.spec.guided }

func (a *formAdapter) Open(ctx context.Context, url string) error {
	target := url
	if a.spec.applySuffix != "" && !strings.HasSuffix(strings.TrimRight(url, "/"), a.spec.applySuffix) {
		target = strings.TrimRight(url, "/") + a.spec.applySuffix
	}
	a.logger.Info("adapter_open", zap.String("url", target))

	if err := a.page.Navigate(ctx, target); err != nil {
		return err
	}
	a.page.Pause(ctx, a.spec.settle)
	a.dismissCookieBanner(ctx)

	if a.spec.ready != "" && !a.page.WaitFor(ctx, a.spec.ready, a.spec.readyTimeout) {
		a.logger.Warn("adapter_form_not_found", zap.String("url", target))
	}
	return ctx.Err()
}

func (a *formAdapter) dismissCookieBanner(ctx context.Context) {
	if sel, ok := a.clickFirst(ctx, cookieButtons...); ok {
		a.logger.Debug("cookie_banner_dismissed", zap.String("selector", sel))
	}
}

// clickFirst clicks the first visible selector and returns it.
func (a *formAdapter) clickFirst(ctx context.Context, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		if !a.page.Visible(ctx, sel) {
			continue
		}
		if err := a.page.Click(ctx, sel); err != nil {
			a.logger.Debug("click_failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		return sel, true
	}
	return "", false
}

func (a *formAdapter) Fill(ctx context.Context, profile *config.Profile, resume string, resolver Resolver) (FillResult, error) {
	var result FillResult
	if profile == nil {
		profile = &config.Profile{}
	}

	if len(a.spec.apply) > 0 {
		if _, ok := a.clickFirst(ctx, a.spec.apply...); ok {
			a.page.Pause(ctx, 1500*time.Millisecond)
		}
	}

	for _, f := range a.spec.fields {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		a.fillField(ctx, &result, f, f.value(profile))
	}

	if a.uploadResume(ctx, resume) {
		result.FilledFields = append(result.FilledFields, "resume")
	} else {
		result.SkippedFields = append(result.SkippedFields, "resume")
	}

	if !a.spec.noQuestions && resolver != nil {
		if err := a.answerQuestions(ctx, &result, resolver); err != nil {
			return result, err
		}
	}

	a.logger.Info("adapter_form_filled",
		zap.Int("filled", len(result.FilledFields)),
		zap.Int("skipped", len(result.SkippedFields)),
		zap.Int("questions", len(result.UnknownQuestions)),
	)
	return result, ctx.Err()
}

// fillField enters value into the first visible selector of f. Empty
// values and misses are recorded as skipped unless f is optional.
func (a *formAdapter) fillField(ctx context.Context, result *FillResult, f fieldSpec, value string) {
	if value != "" {
		for _, sel := range f.selectors {
			if !a.page.Visible(ctx, sel) {
				continue
			}
			var err error
			if f.kind == kindChoice {
				err = a.page.Choose(ctx, sel, value)
			} else {
				err = a.page.Fill(ctx, sel, value)
			}
			if err != nil {
				a.logger.Debug("field_fill_failed", zap.String("field", f.name), zap.Error(err))
				continue
			}
			result.FilledFields = append(result.FilledFields, f.name)
			a.logger.Debug("field_filled", zap.String("field", f.name))
			return
		}
	}
	if !f.optional {
		result.SkippedFields = append(result.SkippedFields, f.name)
	}
}

func (a *formAdapter) uploadResume(ctx context.Context, resume string) bool {
	if resume == "" {
		return false
	}
	for _, sel := range a.spec.resume {
		if !a.page.Exists(ctx, sel) {
			continue
		}
		if err := a.page.Upload(ctx, sel, resume); err != nil {
			a.logger.Warn("file_upload_failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		a.page.Pause(ctx, 800*time.Millisecond)
		a.logger.Debug("file_uploaded", zap.String("path", resume))
		return true
	}
	return false
}

// answerQuestions resolves every empty field left on the form. Resolver
// errors abort the fill; page errors only skip the question.
func (a *formAdapter) answerQuestions(ctx context.Context, result *FillResult, resolver Resolver) error {
	fields, err := a.page.Fields(ctx, a.spec.questionScope)
	if err != nil {
		a.logger.Warn("question_scan_failed", zap.Error(err))
		return nil
	}
	for _, f := range fields {
		if f.Label == "" || a.isHandled(f.Label) {
			continue
		}
		q := UnknownQuestion{
			Label:     f.Label,
			FieldType: f.Type,
			Options:   f.Options,
			Context:   f.Label,
			Selector:  f.Selector,
		}
		answer, err := resolver.Resolve(ctx, a.spec.ats, q)
		if err != nil {
			return fmt.Errorf("failed to answer %q: %w", f.Label, err)
		}
		if answer != "" {
			if err := a.enter(ctx, f, answer); err != nil {
				a.logger.Warn("question_fill_failed", zap.String("label", f.Label), zap.Error(err))
			} else {
				q.Answer = answer
				result.FilledFields = append(result.FilledFields, "custom:"+truncate(f.Label, 30))
			}
		}
		result.UnknownQuestions = append(result.UnknownQuestions, q)
	}
	return nil
}

func (a *formAdapter) enter(ctx context.Context, f Field, answer string) error {
	switch f.Type {
	case FieldSelect, FieldRadio:
		return a.page.Choose(ctx, f.Selector, answer)
	default:
		return a.page.Fill(ctx, f.Selector, answer)
	}
}

func (a *formAdapter) isHandled(label string) bool {
	label = strings.ToLower(label)
	for _, kw := range a.spec.handled {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

func (a *formAdapter) ReachReview(ctx context.Context) error {
	if a.spec.guided {
		a.logger.Info("adapter_waiting_for_manual_review")
		return nil
	}
	for i := 0; i < a.spec.maxSteps; i++ {
		if a.atReview(ctx) {
			break
		}
		if _, ok := a.clickFirst(ctx, a.spec.next...); !ok {
			break
		}
		a.page.Pause(ctx, time.Second)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := a.page.ScrollToBottom(ctx); err != nil {
		a.logger.Debug("scroll_failed", zap.Error(err))
	}
	a.page.Pause(ctx, 500*time.Millisecond)
	a.logger.Info("adapter_review_ready")
	return ctx.Err()
}

func (a *formAdapter) atReview(ctx context.Context) bool {
	for _, sel := range a.spec.review {
		if a.page.Visible(ctx, sel) {
			return true
		}
	}
	return false
}

func (a *formAdapter) Submit(ctx context.Context) error {
	sel, ok := a.clickFirst(ctx, a.spec.submit...)
	if !ok {
		return fmt.Errorf("%s: %w", a.spec.ats, ErrSubmitNotFound)
	}
	a.logger.Info("adapter_submitted", zap.String("selector", sel))
	a.page.Pause(ctx, 2*time.Second)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
