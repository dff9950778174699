package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobly/internal/ats"
)

// UnknownCompany is used when no company name can be inferred for a link.
const UnknownCompany = "Unknown Company"

var whitespacePattern = regexp.MustCompile(`\s+`)

// jobPathPattern matches URL paths that usually lead to a posting.
var jobPathPattern = regexp.MustCompile(`(?i)/(job|jobs|career|careers|apply|application|position|opening)/`)

// skipTexts are anchor labels that never name a job.
var skipTexts = map[string]struct{}{
	"unsubscribe":        {},
	"view in browser":    {},
	"privacy policy":     {},
	"terms":              {},
	"help":               {},
	"manage preferences": {},
	"opt out":            {},
	"click here":         {},
	"":                   {},
	"apply":              {},
}

// locationPatterns are tried in priority order.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(remote|hybrid|on-site|onsite)\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)?,\s*[A-Z]{2})\b`),
	regexp.MustCompile(`(?i)\b(New York|San Francisco|Seattle|Austin|Boston|Chicago)\b`),
}

var emojiPattern = regexp.MustCompile(`[` +
	`\x{1F600}-\x{1F64F}` +
	`\x{1F300}-\x{1F5FF}` +
	`\x{1F680}-\x{1F6FF}` +
	`\x{1F1E0}-\x{1F1FF}` +
	`\x{2702}-\x{27B0}` +
	`\x{24C2}-\x{1F251}` +
	`\x{1F900}-\x{1F9FF}` +
	`\x{1FA00}-\x{1FA6F}` +
	`\x{1FA70}-\x{1FAFF}` +
	`]+`)

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// isSkipText reports whether an anchor label is boilerplate.
func isSkipText(s string) bool {
	_, ok := skipTexts[strings.ToLower(s)]
	return ok
}

// isJobURL reports whether href points at a job board or a job-like path.
func isJobURL(href string) bool {
	return ats.IsJobBoardURL(href) || jobPathPattern.MatchString(href)
}

// textLen counts characters rather than bytes.
func textLen(s string) int {
	return utf8.RuneCountInString(s)
}

// spacedText joins the trimmed text nodes under sel with single spaces, so
// adjacent cells and inline tags do not run together.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "#text" {
				if t := strings.TrimSpace(child.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(child)
		})
	}
	walk(sel)
	return cleanText(strings.Join(parts, " "))
}

// LocationFromText returns the first location-like phrase in text, or "".
func LocationFromText(text string) string {
	for _, p := range locationPatterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func inferLocation(container *goquery.Selection) string {
	return LocationFromText(spacedText(container))
}

// titleFromURL derives a rough title from the last meaningful path segment.
// Segments that are all digits or three characters or shorter are ignored.
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	var last string
	for _, part := range strings.Split(parsed.Path, "/") {
		if part == "" || isDigits(part) || textLen(part) <= 3 {
			continue
		}
		last = part
	}
	if last == "" {
		return ""
	}
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	return titleCase(last)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// StripEmoji removes emoji and pictographs and trims the result.
func StripEmoji(s string) string {
	return strings.TrimSpace(emojiPattern.ReplaceAllString(s, ""))
}
