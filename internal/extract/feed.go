package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/canonical"
)

const (
	continuationMarker = "↳"
	closedMarker       = "🔒"
)

var applyAltPattern = regexp.MustCompile(`(?i)^Apply$`)

// FeedOptions filters rows of a job feed table.
type FeedOptions struct {
	// TitleKeywords keeps only roles containing at least one keyword
	// (case-insensitive). Empty keeps every role.
	TitleKeywords []string
	// SkipATS drops postings hosted on these systems.
	SkipATS []ats.Type
}

// ParseFeed extracts jobs from a Company | Role | Location | Application
// table, such as the one rendered from a community internship list README.
// Only the first table with Company, Role and Application headers is read.
func (e *Extractor) ParseFeed(html string, opts FeedOptions) []Job {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug("feed_invalid_document", zap.Error(err))
		return nil
	}

	table := findFeedTable(doc)
	if table == nil {
		e.logger.Warn("feed_no_table_found")
		return nil
	}

	keywords := make([]string, 0, len(opts.TitleKeywords))
	for _, kw := range opts.TitleKeywords {
		keywords = append(keywords, strings.ToLower(kw))
	}
	skip := make(map[ats.Type]struct{}, len(opts.SkipATS))
	for _, t := range opts.SkipATS {
		skip[t] = struct{}{}
	}

	var jobs []Job
	seen := make(map[string]struct{})
	currentCompany := ""

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		companyCell := cells.Eq(0)
		roleCell := cells.Eq(1)
		locationCell := cells.Eq(2)
		applicationCell := cells.Eq(3)

		companyText := cleanText(companyCell.Text())
		if !strings.Contains(companyText, continuationMarker) {
			if a := companyCell.Find("a").First(); a.Length() > 0 {
				currentCompany = StripEmoji(cleanText(a.Text()))
			} else {
				currentCompany = StripEmoji(companyText)
			}
		}
		if currentCompany == "" {
			return
		}

		applyURL := applyLink(applicationCell)
		if applyURL == "" {
			return
		}

		role := StripEmoji(cleanText(roleCell.Text()))
		if role == "" {
			return
		}
		if !matchesAnyKeyword(role, keywords) {
			e.logger.Debug("feed_skip_role",
				zap.String("role", role),
				zap.String("company", currentCompany))
			return
		}

		atsType := ats.Classify(applyURL)
		if _, ok := skip[atsType]; ok {
			e.logger.Debug("feed_skip_ats",
				zap.String("company", currentCompany),
				zap.String("ats", atsType.String()))
			return
		}

		canon := canonical.Canonicalize(applyURL)
		hash := canonical.Hash(canon)
		if _, dup := seen[hash]; dup {
			return
		}
		seen[hash] = struct{}{}

		jobs = append(jobs, Job{
			Company:      currentCompany,
			Title:        role,
			URL:          canon,
			URLHash:      hash,
			ATSType:      atsType,
			Location:     StripEmoji(spacedText(locationCell)),
			DiscoveredAt: e.now(),
		})
	})

	e.logger.Info("feed_jobs_found", zap.Int("count", len(jobs)))
	return jobs
}

func findFeedTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		headers := make(map[string]bool)
		t.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers[cleanText(th.Text())] = true
		})
		if headers["Company"] && headers["Role"] && headers["Application"] {
			found = t
			return false
		}
		return true
	})
	return found
}

// applyLink returns the href of the anchor wrapping an "Apply" image. Closed
// postings and cells holding only third-party links yield "".
func applyLink(cell *goquery.Selection) string {
	if strings.Contains(cell.Text(), closedMarker) {
		return ""
	}
	href := ""
	cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		hasApply := a.Find("img[alt]").FilterFunction(func(_ int, img *goquery.Selection) bool {
			alt, _ := img.Attr("alt")
			return applyAltPattern.MatchString(alt)
		}).Length() > 0
		if hasApply {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	return href
}

func matchesAnyKeyword(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
