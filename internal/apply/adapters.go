package apply

import (
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/config"
)

// contactKeywords are labels of the standard contact fields.
var contactKeywords = []string{
	"first name", "last name", "full name", "email", "phone",
	"linkedin", "github", "website", "portfolio", "location",
}

// Greenhouse boards are plain single-page HTML forms.
var greenhouseForm = formSpec{
	ats:          ats.Greenhouse,
	settle:       time.Second,
	ready:        "#application-form, form#application_form, form[action*='applications'], .application-form",
	readyTimeout: 12 * time.Second,
	fields: []fieldSpec{
		{name: "first_name", value: firstName, selectors: []string{"#first_name", "input[id*='first_name']"}},
		{name: "last_name", value: lastName, selectors: []string{"#last_name", "input[id*='last_name']"}},
		{name: "email", value: email, selectors: []string{"#email", "input[id*='email']", "input[type='email']"}},
		{name: "phone", value: phone, selectors: []string{"#phone", "input[id*='phone']", "input[type='tel']"}},
		{name: "location", value: location, optional: true, selectors: []string{
			"#location", "input[id*='location']", "input[placeholder*='city' i]", "input[name*='location' i]"}},
		{name: "linkedin", value: linkedIn, optional: true, selectors: []string{
			"input[id*='linkedin']", "input[name*='linkedin']", "input[placeholder*='linkedin' i]"}},
		{name: "github", value: gitHub, optional: true, selectors: []string{"input[id*='github']", "input[name*='github']"}},
		{name: "website", value: website, optional: true, selectors: []string{
			"input[id*='website']", "input[name*='website']", "input[id*='portfolio']"}},
		{name: "school", value: school, optional: true, selectors: []string{
			"input[id*='school']", "input[name*='school']", "input[placeholder*='school' i]", "input[placeholder*='university' i]"}},
		{name: "work_authorization", kind: kindChoice, value: authorized, optional: true, selectors: []string{
			"select[id*='authorized']", "select[name*='authorized']", "select[id*='work_auth']"}},
		{name: "sponsorship", kind: kindChoice, value: sponsorship, optional: true, selectors: []string{
			"select[id*='sponsor']", "select[name*='sponsor']"}},
		{name: "gender", kind: kindChoice, optional: true,
			value:     orElse(func(p *config.Profile) string { return p.Demographics.Gender }, "Decline to state"),
			selectors: []string{"select[id*='gender']", "select[name*='gender']"}},
		{name: "race_ethnicity", kind: kindChoice, optional: true,
			value:     orElse(func(p *config.Profile) string { return p.Demographics.RaceEthnicity }, "Decline to state"),
			selectors: []string{"select[id*='race']", "select[id*='ethnicity']", "select[name*='race']"}},
		{name: "veteran_status", kind: kindChoice, optional: true,
			value:     orElse(func(p *config.Profile) string { return p.Demographics.VeteranStatus }, "I am not a protected veteran"),
			selectors: []string{"select[id*='veteran']", "select[name*='veteran']"}},
		{name: "disability_status", kind: kindChoice, optional: true,
			value:     orElse(func(p *config.Profile) string { return p.Demographics.DisabilityStatus }, "I don't wish to answer"),
			selectors: []string{"select[id*='disability']", "select[name*='disability']"}},
	},
	resume:  []string{"input#resume", "input[id*='resume'][type='file']", "input[type='file'][accept*='pdf']", "input[type='file']"},
	handled: append([]string{"school", "gender", "race", "veteran", "disability"}, contactKeywords...),
	submit: []string{
		"input[type='submit']",
		"button[type='submit']",
		buttonText("button", "Submit Application"),
		buttonText("button", "Submit"),
		"#submit_app",
	},
}

// Lever forms live on the posting's /apply page and are mostly single-step.
var leverForm = formSpec{
	ats:          ats.Lever,
	applySuffix:  "/apply",
	settle:       1500 * time.Millisecond,
	ready:        "form.application-form, #application-form, .lever-application-form, form[data-qa='application-form']",
	readyTimeout: 12 * time.Second,
	fields: []fieldSpec{
		{name: "name", value: fullName, selectors: []string{
			"input[name='name']", "input[id='name']", "input[data-qa='name-field']", "input[placeholder*='name' i]"}},
		{name: "email", value: email, selectors: []string{
			"input[name='email']", "input[id='email']", "input[type='email']", "input[data-qa='email-field']"}},
		{name: "phone", value: phone, selectors: []string{
			"input[name='phone']", "input[id='phone']", "input[type='tel']", "input[data-qa='phone-field']"}},
		{name: "linkedin", value: linkedIn, optional: true, selectors: []string{
			"input[name='urls[LinkedIn]']", "input[placeholder*='linkedin' i]", "input[data-qa='linkedin-field']"}},
		{name: "github", value: gitHub, optional: true, selectors: []string{
			"input[name='urls[GitHub]']", "input[placeholder*='github' i]", "input[data-qa='github-field']"}},
		{name: "portfolio", value: website, optional: true, selectors: []string{
			"input[name='urls[Portfolio]']", "input[placeholder*='portfolio' i]", "input[placeholder*='website' i]"}},
		{name: "location", value: location, optional: true, selectors: []string{
			"input[name='location']", "input[placeholder*='location' i]"}},
	},
	resume:        []string{"input[type='file'][name='resume']", "input[type='file'][accept*='pdf']", "input[type='file']"},
	questionScope: "form",
	// Students leave the current company blank.
	handled:  append([]string{"current company", "organization"}, contactKeywords...),
	next:     []string{buttonText("button", "Continue"), buttonText("button", "Next")},
	maxSteps: 4,
	submit: []string{
		"[data-qa='btn-submit']",
		buttonText("button", "Submit application"),
		buttonText("button", "Submit"),
		"input[type='submit']",
	},
}

// Ashby is a React app with a listing page in front of a multi-step form.
var ashbyForm = formSpec{
	ats:          ats.Ashby,
	settle:       2 * time.Second,
	ready:        "[data-ashby-application-form], form, [role='form']",
	readyTimeout: 15 * time.Second,
	apply:        []string{buttonText("a", "Apply"), buttonText("button", "Apply")},
	fields: []fieldSpec{
		{name: "first_name", value: firstName, selectors: []string{
			"input[name*='first' i]", "input[placeholder*='first' i]", "input[id*='first' i]", "input[aria-label*='first name' i]"}},
		{name: "last_name", value: lastName, selectors: []string{
			"input[name*='last' i]", "input[placeholder*='last' i]", "input[id*='last' i]", "input[aria-label*='last name' i]"}},
		{name: "full_name", value: fullName, optional: true, selectors: []string{
			"input[name*='fullName' i]", "input[placeholder*='full name' i]", "input[aria-label*='full name' i]"}},
		{name: "email", value: email, selectors: []string{"input[type='email']", "input[name*='email' i]", "input[id*='email' i]"}},
		{name: "phone", value: phone, selectors: []string{"input[type='tel']", "input[name*='phone' i]", "input[id*='phone' i]"}},
		{name: "location", value: location, optional: true, selectors: []string{
			"input[name*='location' i]", "input[placeholder*='location' i]", "input[id*='location' i]", "input[placeholder*='city' i]"}},
		{name: "linkedin", value: linkedIn, optional: true, selectors: []string{
			"input[name*='linkedin' i]", "input[placeholder*='linkedin' i]", "input[id*='linkedin' i]"}},
		{name: "github", value: gitHub, optional: true, selectors: []string{
			"input[name*='github' i]", "input[placeholder*='github' i]", "input[id*='github' i]"}},
		{name: "website", value: website, optional: true, selectors: []string{
			"input[name*='website' i]", "input[name*='portfolio' i]", "input[placeholder*='website' i]"}},
		{name: "work_authorization", kind: kindChoice, value: authorized, optional: true, selectors: []string{
			"input[type='radio'][name*='authoriz' i]"}},
		{name: "sponsorship", kind: kindChoice, value: sponsorship, optional: true, selectors: []string{
			"input[type='radio'][name*='sponsor' i]"}},
	},
	resume:  []string{"input[type='file'][accept*='pdf']", "input[type='file'][accept*='.pdf']", "input[type='file']"},
	handled: contactKeywords,
	next: []string{
		buttonText("button", "Next"),
		buttonText("button", "Continue"),
		buttonText("button", "Save & Continue"),
	},
	maxSteps: 8,
	review:   []string{"[data-ashby-application-form-submit]", buttonText("button", "Submit")},
	submit: []string{
		"[data-ashby-application-form-submit]",
		buttonText("button", "Submit Application"),
		buttonText("button", "Submit"),
	},
}

// Workday cannot be automated reliably. The adapter fills the email and
// resume, then the user completes the form in the browser.
var workdayForm = formSpec{
	ats:    ats.Workday,
	settle: 3 * time.Second,
	apply: []string{
		"a[data-automation-id='applyButton']",
		"button[data-automation-id='applyButton']",
		buttonText("a", "Apply"),
		buttonText("button", "Apply"),
	},
	fields: []fieldSpec{
		{name: "email", value: email, optional: true, selectors: []string{
			"input[data-automation-id='email']", "input[type='email']", "input[name*='email' i]"}},
	},
	resume:      []string{"input[type='file']"},
	noQuestions: true,
	submit: []string{
		"button[data-automation-id='bottom-navigation-next-button']",
		"button[data-automation-id='submitButton']",
		buttonText("button", "Submit"),
	},
	guided: true,
}

// genericForm serves ATS types without a dedicated adapter.
var genericForm = formSpec{
	ats:          ats.Unknown,
	settle:       2 * time.Second,
	ready:        "form",
	readyTimeout: 10 * time.Second,
	apply:        []string{buttonText("a", "Apply"), buttonText("button", "Apply")},
	fields: []fieldSpec{
		{name: "first_name", value: firstName, optional: true, selectors: []string{
			"input[name*='first' i]", "input[id*='first' i]", "input[autocomplete='given-name']"}},
		{name: "last_name", value: lastName, optional: true, selectors: []string{
			"input[name*='last' i]", "input[id*='last' i]", "input[autocomplete='family-name']"}},
		{name: "email", value: email, selectors: []string{"input[type='email']", "input[name*='email' i]"}},
		{name: "phone", value: phone, optional: true, selectors: []string{"input[type='tel']", "input[name*='phone' i]"}},
		{name: "linkedin", value: linkedIn, optional: true, selectors: []string{"input[name*='linkedin' i]"}},
	},
	resume:   []string{"input[type='file'][accept*='pdf']", "input[type='file']"},
	handled:  contactKeywords,
	next:     []string{buttonText("button", "Next"), buttonText("button", "Continue")},
	maxSteps: 6,
	submit: []string{
		"button[type='submit']",
		"input[type='submit']",
		buttonText("button", "Submit"),
	},
}

// NewGreenhouse returns the Greenhouse adapter.
func NewGreenhouse(page Page, logger *zap.Logger) Adapter {
	return newFormAdapter(greenhouseForm, page, logger)
}

// NewLever returns the Lever adapter.
func NewLever(page Page, logger *zap.Logger) Adapter {
	return newFormAdapter(leverForm, page, logger)
}

// NewAshby returns the Ashby adapter.
func NewAshby(page Page, logger *zap.Logger) Adapter {
	return newFormAdapter(ashbyForm, page, logger)
}

// NewWorkday returns the guided Workday adapter.
func NewWorkday(page Page, logger *zap.Logger) Adapter {
	return newFormAdapter(workdayForm, page, logger)
}

// NewGeneric returns the best-effort adapter for any other form.
func NewGeneric(page Page, logger *zap.Logger) Adapter {
	return newFormAdapter(genericForm, page, logger)
}
