package apply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// UserAgent is the desktop Chrome user agent the session presents.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Viewport size of the browser window.
const (
	ViewportWidth  = 1280
	ViewportHeight = 900
)

// probeTimeout bounds visibility checks.
const probeTimeout = 2 * time.Second

// ErrNoOption is returned by Choose when no option matches.
var ErrNoOption = errors.New("no matching option")

// SessionConfig configures a browser session.
type SessionConfig struct {
	Headless bool
	// Timeout bounds each browser action.
	Timeout time.Duration
	// ExecPath is the Chrome binary; chromedp searches for one when empty.
	ExecPath string
}

// Session is a single Chrome tab driven through chromedp.
type Session struct {
	ctx     context.Context
	cancel  func()
	timeout time.Duration
	logger  *zap.Logger
}

var _ Page = (*Session)(nil)

// NewSession launches Chrome and opens a tab. The browser outlives ctx's
// cancellation so artifacts can still be captured; call Close to stop it.
func NewSession(ctx context.Context, cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(ViewportWidth, ViewportHeight),
		chromedp.UserAgent(UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)
	s := &Session{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		timeout: cfg.Timeout,
		logger:  logger,
	}

	// An empty Run starts the browser.
	if err := s.run(ctx, cfg.Timeout); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debug("browser_started", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.cancel()
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

func by(sel string) chromedp.QueryOption {
	if isXPath(sel) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("browser_navigate", zap.String("url", url))
	if err := s.run(ctx, s.timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitFor(ctx context.Context, sel string, timeout time.Duration) bool {
	return s.run(ctx, timeout, chromedp.WaitReady(sel, by(sel))) == nil
}

func (s *Session) Visible(ctx context.Context, sel string) bool {
	var ok bool
	err := s.run(ctx, probeTimeout, chromedp.Evaluate(script(visibleJS, sel), &ok))
	return err == nil && ok
}

func (s *Session) Exists(ctx context.Context, sel string) bool {
	var ok bool
	err := s.run(ctx, probeTimeout, chromedp.Evaluate(script(existsJS, sel), &ok))
	return err == nil && ok
}

func (s *Session) Fill(ctx context.Context, sel, value string) error {
	if err := s.run(ctx, s.timeout,
		chromedp.Clear(sel, by(sel)),
		chromedp.SendKeys(sel, value, by(sel)),
	); err != nil {
		return fmt.Errorf("failed to fill %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Choose(ctx context.Context, sel, value string) error {
	var ok bool
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(script(chooseJS, sel, value), &ok)); err != nil {
		return fmt.Errorf("failed to choose %q in %s: %w", value, sel, err)
	}
	if !ok {
		return fmt.Errorf("choose %q in %s: %w", value, sel, ErrNoOption)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx, s.timeout, chromedp.Click(sel, by(sel), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Upload(ctx context.Context, sel, path string) error {
	if err := s.run(ctx, s.timeout, chromedp.SetUploadFiles(sel, []string{path}, by(sel))); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Fields(ctx context.Context, scope string) ([]Field, error) {
	var raw string
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(script(fieldsJS, scope), &raw)); err != nil {
		return nil, fmt.Errorf("failed to list form fields: %w", err)
	}
	var fields []Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode form fields: %w", err)
	}
	return fields, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, s.timeout,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 produces a PNG.
	if err := s.run(ctx, s.timeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// script renders a page script called with JSON-encoded arguments.
func script(fn string, args ...string) string {
	call := "(" + fn + ")(" + findJS
	for _, a := range args {
		b, _ := json.Marshal(a)
		call += "," + string(b)
	}
	return call + ")"
}

// Page scripts. Each is a function taking find as its first argument,
// followed by the script arguments.
const findJS = `function(sel, root) {
  root = root || document;
  if (sel.charAt(0) === '/' || sel.charAt(0) === '(') {
    return document.evaluate(sel, root, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  }
  try { return root.querySelector(sel); } catch (e) { return null; }
}`

const visibleJS = `function(find, sel) {
  var el = find(sel);
  if (!el) return false;
  var r = el.getBoundingClientRect(), st = getComputedStyle(el);
  return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
}`

const existsJS = `function(find, sel) { return !!find(sel); }`

const chooseJS = `function(find, sel, want) {
  var el = find(sel);
  if (!el) return false;
  want = want.trim().toLowerCase();
  var fire = function(n) {
    n.dispatchEvent(new Event('input', {bubbles: true}));
    n.dispatchEvent(new Event('change', {bubbles: true}));
  };
  if (el.tagName === 'SELECT') {
    var opts = Array.prototype.slice.call(el.options);
    var pick = opts.find(function(o) { return o.text.trim().toLowerCase() === want || o.value.toLowerCase() === want; }) ||
      opts.find(function(o) { return want && o.text.toLowerCase().indexOf(want) >= 0; });
    if (!pick) return false;
    el.value = pick.value;
    fire(el);
    return true;
  }
  if (el.type === 'radio' || el.type === 'checkbox') {
    var group = el.name ? Array.prototype.slice.call(document.querySelectorAll('input[name="' + CSS.escape(el.name) + '"]')) : [el];
    var label = function(i) {
      var l = i.labels && i.labels[0];
      return ((l ? l.innerText : '') || i.value || '').trim().toLowerCase();
    };
    var hit = group.find(function(i) { return label(i) === want || i.value.toLowerCase() === want; }) ||
      group.find(function(i) { return want && label(i).indexOf(want) >= 0; });
    if (!hit) return false;
    hit.click();
    return true;
  }
  return false;
}`

const fieldsJS = `function(find, scope) {
  var root = document;
  if (scope) {
    root = find(scope);
    if (!root) return '[]';
  }
  var out = [], seen = {};
  var text = function(el) { return el ? (el.innerText || '').replace(/\s+/g, ' ').trim() : ''; };
  var visible = function(el) {
    var r = el.getBoundingClientRect(), st = getComputedStyle(el);
    return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
  };
  var labelOf = function(el) {
    var a = el.getAttribute('aria-label');
    if (a) return a.trim();
    if (el.labels && el.labels.length && text(el.labels[0])) return text(el.labels[0]);
    var box = el.closest('fieldset, [role=group], [role=radiogroup], .application-question, .field');
    if (box) {
      var l = text(box.querySelector('legend, label'));
      if (l) return l;
    }
    return (el.getAttribute('placeholder') || '').trim();
  };
  var mark = function(el) {
    var id = String(out.length);
    el.setAttribute('data-jobly-field', id);
    return '[data-jobly-field="' + id + '"]';
  };
  root.querySelectorAll('input, textarea, select').forEach(function(el) {
    var type = el.tagName === 'SELECT' ? 'select' : el.tagName === 'TEXTAREA' ? 'textarea' : (el.type || 'text').toLowerCase();
    if (['hidden', 'file', 'submit', 'button', 'reset', 'image', 'checkbox'].indexOf(type) >= 0) return;
    if (!visible(el)) return;
    if (type === 'radio') {
      if (!el.name || seen[el.name]) return;
      seen[el.name] = true;
      var group = Array.prototype.slice.call(document.querySelectorAll('input[type=radio][name="' + CSS.escape(el.name) + '"]'));
      if (group.some(function(r) { return r.checked; })) return;
      var box = el.closest('fieldset, [role=radiogroup], [role=group], .application-question, .field');
      var options = group.map(function(r) { return text(r.labels && r.labels[0]) || r.value; });
      out.push({selector: mark(el), label: box ? text(box.querySelector('legend, label')) : '', type: 'radio', options: options, required: el.required});
      return;
    }
    if (type === 'select') {
      if (el.value) return;
      var opts = Array.prototype.slice.call(el.options).filter(function(o) { return o.value; }).map(function(o) { return o.text.trim(); });
      out.push({selector: mark(el), label: labelOf(el), type: 'select', options: opts, required: el.required});
      return;
    }
    if (el.value) return;
    out.push({selector: mark(el), label: labelOf(el), type: type === 'textarea' ? 'textarea' : 'text', options: [], required: el.required});
  });
  return JSON.stringify(out);
}`
