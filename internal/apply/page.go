// Package apply drives application forms in a browser: ATS adapters that
// fill and submit forms, the chromedp session they run on, and the runner
// that walks the application queue.
package apply

import (
	"context"
	"strings"
	"time"
)

// Field types reported by Page.Fields.
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldRadio    = "radio"
	FieldCheckbox = "checkbox"
)

// Field is an empty form control found on the page.
type Field struct {
	Selector string   `json:"selector"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
}

// Page is the browser surface adapters work against. Selectors starting
// with "/" are XPath expressions, everything else is CSS.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor waits up to timeout for any node matching sel and reports
	// whether one appeared.
	WaitFor(ctx context.Context, sel string, timeout time.Duration) bool
	// Visible reports whether a node matching sel is currently visible.
	Visible(ctx context.Context, sel string) bool
	// Exists reports whether a node matching sel is in the document.
	Exists(ctx context.Context, sel string) bool
	Fill(ctx context.Context, sel, value string) error
	// Choose picks the option of a select or radio group whose label or
	// value matches value.
	Choose(ctx context.Context, sel, value string) error
	Click(ctx context.Context, sel string) error
	Upload(ctx context.Context, sel, path string) error
	// Fields lists visible, empty controls inside scope ("" for the whole
	// document).
	Fields(ctx context.Context, scope string) ([]Field, error)
	ScrollToBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// Pause sleeps for d unless ctx ends first.
	Pause(ctx context.Context, d time.Duration)
}

// isXPath reports whether sel is an XPath expression.
func isXPath(sel string) bool {
	return strings.HasPrefix(sel, "/") || strings.HasPrefix(sel, "(")
}

// buttonText returns an XPath matching buttons or links whose text contains
// text.
func buttonText(tag, text string) string {
	return "//" + tag + "[contains(normalize-space(.), '" + text + "')]"
}
