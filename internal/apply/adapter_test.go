package apply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []ats.Type{ats.Ashby, ats.Greenhouse, ats.Lever, ats.Workday}, r.Supported())

	page := newFakePage()
	tests := []struct {
		atsType ats.Type
		want    ats.Type
		guided  bool
	}{
		{ats.Greenhouse, ats.Greenhouse, false},
		{ats.Lever, ats.Lever, false},
		{ats.Ashby, ats.Ashby, false},
		{ats.Workday, ats.Workday, true},
		{ats.ICIMS, ats.Unknown, false},
		{ats.Unknown, ats.Unknown, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.atsType), func(t *testing.T) {
			a := r.Adapter(tt.atsType, page, nil)
			assert.Equal(t, tt.want, a.ATS())
			assert.Equal(t, tt.guided, IsGuided(a))
		})
	}

	assert.Equal(t, ats.Lever, r.ForURL("https://jobs.lever.co/acme/123", page, nil).ATS())
	assert.False(t, r.Has(ats.ICIMS))

	fake := &fakeAdapter{atsType: ats.ICIMS}
	r.Register(ats.ICIMS, func(Page, *zap.Logger) Adapter { return fake })
	assert.True(t, r.Has(ats.ICIMS))
	assert.Same(t, fake, r.Adapter(ats.ICIMS, page, nil))
	assert.Len(t, r.Supported(), 5)
}

func TestGreenhouseFill(t *testing.T) {
	page := newFakePage(
		"#first_name", "#last_name", "input[type='email']", "#phone",
		"input[id*='linkedin']", "select[id*='sponsor']", "select[id*='gender']",
	)
	page.exists["input[type='file']"] = true
	page.fields = []Field{
		{Selector: `[data-jobly-field="0"]`, Label: "Why Acme?", Type: FieldTextarea},
		{Selector: `[data-jobly-field="1"]`, Label: "Phone number", Type: FieldText},
		{Selector: `[data-jobly-field="2"]`, Label: "Are you 18 or older?", Type: FieldSelect, Options: []string{"Yes", "No"}},
		{Selector: `[data-jobly-field="3"]`, Label: "Anything else?", Type: FieldText},
	}
	resolver := &mapResolver{answers: map[string]string{
		"Why Acme?":            "Rockets.",
		"Are you 18 or older?": "Yes",
	}}

	result, err := NewGreenhouse(page, nil).Fill(context.Background(), testProfile(), "/tmp/resume.pdf", resolver)
	require.NoError(t, err)

	assert.Equal(t, "Ada", page.filled["#first_name"])
	assert.Equal(t, "Lovelace", page.filled["#last_name"])
	assert.Equal(t, "ada@example.com", page.filled["input[type='email']"])
	assert.Equal(t, "555-0100", page.filled["#phone"])
	assert.Equal(t, "https://linkedin.com/in/ada", page.filled["input[id*='linkedin']"])
	assert.Equal(t, "No", page.chosen["select[id*='sponsor']"])
	assert.Equal(t, "Decline to state", page.chosen["select[id*='gender']"])
	assert.Equal(t, "/tmp/resume.pdf", page.uploaded["input[type='file']"])
	assert.Equal(t, "Rockets.", page.filled[`[data-jobly-field="0"]`])
	assert.Equal(t, "Yes", page.chosen[`[data-jobly-field="2"]`])

	assert.Equal(t, []string{"Why Acme?", "Are you 18 or older?", "Anything else?"}, resolver.asked)
	assert.Empty(t, result.SkippedFields)
	assert.Contains(t, result.FilledFields, "resume")
	assert.Contains(t, result.FilledFields, "custom:Why Acme?")
	require.Len(t, result.UnknownQuestions, 3)
	assert.Empty(t, result.UnknownQuestions[2].Answer)

	answers := result.Answers()
	assert.Equal(t, "filled", answers["first_name"])
	assert.Equal(t, "Rockets.", answers["Why Acme?"])
	assert.NotContains(t, answers, "Anything else?")
	assert.Equal(t, map[string]string{"Why Acme?": "Rockets.", "Are you 18 or older?": "Yes"}, result.CustomAnswers())
}

func TestFill_RecordsSkippedRequiredFields(t *testing.T) {
	page := newFakePage("#first_name")
	result, err := NewGreenhouse(page, nil).Fill(context.Background(), testProfile(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first_name"}, result.FilledFields)
	assert.Equal(t, []string{"last_name", "email", "phone", "resume"}, result.SkippedFields)
	assert.Empty(t, page.uploaded)
}

func TestFill_ResolverErrorAborts(t *testing.T) {
	page := newFakePage()
	page.fields = []Field{{Selector: "#q", Label: "Why us?", Type: FieldText}}

	_, err := NewGreenhouse(page, nil).Fill(context.Background(), testProfile(), "", &mapResolver{err: ErrInterrupted})
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestFill_QuestionScanErrorIsIgnored(t *testing.T) {
	page := newFakePage()
	page.fieldsErr = errBoom
	_, err := NewAshby(page, nil).Fill(context.Background(), testProfile(), "", &mapResolver{})
	assert.NoError(t, err)
}

func TestLeverOpen_AppendsApplyPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://jobs.lever.co/acme/123", "https://jobs.lever.co/acme/123/apply"},
		{"https://jobs.lever.co/acme/123/", "https://jobs.lever.co/acme/123/apply"},
		{"https://jobs.lever.co/acme/123/apply", "https://jobs.lever.co/acme/123/apply"},
	}
	for _, tt := range tests {
		page := newFakePage()
		require.NoError(t, NewLever(page, nil).Open(context.Background(), tt.url))
		assert.Equal(t, []string{tt.want}, page.navigated)
	}
}

func TestOpen_DismissesCookieBanner(t *testing.T) {
	page := newFakePage("[id*='cookie'] button")
	require.NoError(t, NewGreenhouse(page, nil).Open(context.Background(), "https://boards.greenhouse.io/acme/jobs/1"))
	assert.Equal(t, []string{"[id*='cookie'] button"}, page.clicked)
}

func TestAshbyReachReview_StopsBeforeSubmit(t *testing.T) {
	next := buttonText("button", "Next")
	submit := buttonText("button", "Submit")
	page := newFakePage(next)
	clicks := 0
	page.onClick = func(sel string) {
		if sel == next {
			clicks++
			if clicks == 2 {
				page.visible[submit] = true
			}
		}
	}

	require.NoError(t, NewAshby(page, nil).ReachReview(context.Background()))
	assert.Equal(t, []string{next, next}, page.clicked)
	assert.True(t, page.scrolled)
}

func TestReachReview_BoundedSteps(t *testing.T) {
	next := buttonText("button", "Continue")
	page := newFakePage(next)
	require.NoError(t, NewLever(page, nil).ReachReview(context.Background()))
	assert.Len(t, page.clicked, leverForm.maxSteps)
}

func TestSubmit(t *testing.T) {
	page := newFakePage("button[type='submit']")
	require.NoError(t, NewGreenhouse(page, nil).Submit(context.Background()))
	assert.Equal(t, []string{"button[type='submit']"}, page.clicked)

	err := NewLever(newFakePage(), nil).Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitNotFound)
}

func TestWorkdayGuided(t *testing.T) {
	page := newFakePage("input[type='email']")
	page.exists["input[type='file']"] = true
	page.fields = []Field{{Selector: "#q", Label: "Why us?", Type: FieldText}}
	resolver := &mapResolver{}

	a := NewWorkday(page, nil)
	require.True(t, IsGuided(a))
	result, err := a.Fill(context.Background(), testProfile(), "/tmp/resume.pdf", resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "resume"}, result.FilledFields)
	assert.Empty(t, resolver.asked)

	require.NoError(t, a.ReachReview(context.Background()))
	assert.Empty(t, page.clicked)
	assert.False(t, page.scrolled)
}

func TestFill_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGreenhouse(newFakePage(), nil).Fill(ctx, testProfile(), "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
