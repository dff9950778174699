// Package sources fetches raw job documents: digest emails from Gmail and the
// public internship README feed.
package sources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Email is a digest email with its HTML body.
type Email struct {
	GmailID    string
	ThreadID   string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	HTML       string
}

// MailClient is the subset of the Gmail API used by the email source.
type MailClient interface {
	ListMessageIDs(ctx context.Context, query string, maxResults int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

type gmailClient struct {
	svc *gmail.Service
}

// NewMailClient authenticates against Gmail with an OAuth client secret file
// and a previously authorized token file. Only read access is requested.
func NewMailClient(ctx context.Context, credentialsPath, tokenPath string) (MailClient, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail credentials %s: %w", credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gmail credentials: %w", err)
	}
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail token %s: %w", tokenPath, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &gmailClient{svc: svc}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (c *gmailClient) ListMessageIDs(ctx context.Context, query string, maxResults int64) ([]string, error) {
	resp, err := c.svc.Users.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (c *gmailClient) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	return c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
}

// GmailOptions selects digest emails.
type GmailOptions struct {
	SenderFilter  string
	SubjectFilter string
	LookbackDays  int
	MaxResults    int64
}

// Gmail reads digest emails that have not been ingested yet.
type Gmail struct {
	client MailClient
	opts   GmailOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewGmail creates an email source. A nil logger disables logging.
func NewGmail(client MailClient, opts GmailOptions, logger *zap.Logger) *Gmail {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	return &Gmail{
		client: client,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Query returns the Gmail search query for the configured filters.
func (g *Gmail) Query() string {
	parts := []string{"from:" + g.opts.SenderFilter}
	if g.opts.SubjectFilter != "" {
		parts = append(parts, fmt.Sprintf("subject:%q", g.opts.SubjectFilter))
	}
	if g.opts.LookbackDays > 0 {
		parts = append(parts, fmt.Sprintf("newer_than:%dd", g.opts.LookbackDays))
	}
	return strings.Join(parts, " ")
}

// Fetch returns matching emails whose Gmail IDs are not in seen, in the
// order Gmail lists them. A message that cannot be read is logged and
// skipped so it is retried on the next fetch.
func (g *Gmail) Fetch(ctx context.Context, seen map[string]bool) ([]Email, error) {
	query := g.Query()
	ids, err := g.client.ListMessageIDs(ctx, query, g.opts.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail messages: %w", err)
	}
	g.logger.Info("gmail_messages_listed", zap.String("query", query), zap.Int("count", len(ids)))

	var emails []Email
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return emails, err
		}
		msg, err := g.client.GetMessage(ctx, id)
		if err != nil {
			g.logger.Warn("gmail_message_failed", zap.String("gmail_id", id), zap.Error(err))
			continue
		}
		emails = append(emails, g.toEmail(msg))
	}
	return emails, nil
}

func (g *Gmail) toEmail(msg *gmail.Message) Email {
	e := Email{
		GmailID:    msg.Id,
		ThreadID:   msg.ThreadId,
		ReceivedAt: g.now(),
	}
	if msg.Payload == nil {
		return e
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			e.Subject = h.Value
		case "from":
			e.Sender = h.Value
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				e.ReceivedAt = t.UTC()
			}
		}
	}
	e.HTML = htmlBody(msg.Payload)
	return e
}

// htmlBody returns the text/html part of a message, searching nested
// multiparts depth first. A single-part message returns its body whatever
// its type.
func htmlBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if len(part.Parts) == 0 {
		return decodeBody(part.Body)
	}
	if html := findPart(part, "text/html"); html != "" {
		return html
	}
	return findPart(part, "text/plain")
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body)
	}
	for _, child := range part.Parts {
		if body := findPart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	data := strings.TrimRight(body.Data, "=")
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return string(b)
}
