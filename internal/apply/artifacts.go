package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeLabel = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Artifacts saves page screenshots and HTML snapshots under a directory.
type Artifacts struct {
	Dir string
	now func() time.Time
}

// NewArtifacts returns an artifact writer for dir.
func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{Dir: dir, now: time.Now}
}

// path returns Dir/label_YYYYMMDD_HHMMSS.ext.
func (a *Artifacts) path(label, ext string) string {
	label = unsafeLabel.ReplaceAllString(label, "_")
	return filepath.Join(a.Dir, fmt.Sprintf("%s_%s.%s", label, a.now().UTC().Format("20060102_150405"), ext))
}

func (a *Artifacts) write(path string, data []byte) error {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Screenshot saves a full-page PNG and returns its path.
func (a *Artifacts) Screenshot(ctx context.Context, page Page, label string) (string, error) {
	data, err := page.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	path := a.path(label, "png")
	if err := a.write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// HTML saves the page markup and returns its path.
func (a *Artifacts) HTML(ctx context.Context, page Page, label string) (string, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return "", err
	}
	path := a.path(label, "html")
	if err := a.write(path, []byte(html)); err != nil {
		return "", err
	}
	return path, nil
}
