package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/jobly/internal/ats"
)

// cardPattern matches class or id values of job card containers.
var cardPattern = regexp.MustCompile(`(?i)job|card|listing|position|role`)

type strategy struct {
	name string
	run  func(doc *goquery.Document) []candidate
}

// cascade lists strategies from most to least specific.
var cascade = []strategy{
	{"native_entries", nativeEntries},
	{"structured", structuredRows},
	{"ats_links", atsLinks},
	{"job_path_links", jobPathLinks},
}

// nativeEntries handles the digest's own markup:
//
//	<p class="internship"><strong>Acme:</strong> <a href="...">Title</a></p>
func nativeEntries(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("p.internship").Each(func(_ int, p *goquery.Selection) {
		link := p.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		title := cleanText(link.Text())
		if isSkipText(title) {
			return
		}
		company := UnknownCompany
		if strong := p.Find("strong").First(); strong.Length() > 0 {
			if name := strings.TrimRight(cleanText(strong.Text()), ":"); name != "" {
				company = name
			}
		}
		href, _ := link.Attr("href")
		out = append(out, candidate{
			company:  company,
			title:    title,
			url:      href,
			location: inferLocation(p),
		})
	})
	return out
}

// structuredRows scans table rows, then falls back to job card containers.
func structuredRows(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		link := firstJobLink(row)
		if link == nil {
			return
		}
		title := cleanText(link.Text())
		if isSkipText(title) {
			return
		}
		href, _ := link.Attr("href")
		out = append(out, candidate{
			company:  companyFromRow(cells, link),
			title:    title,
			url:      href,
			location: LocationFromText(spacedText(row)),
		})
	})
	if len(out) > 0 {
		return out
	}

	doc.Find("[class], [id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return cardPattern.MatchString(class) || cardPattern.MatchString(id)
	}).Each(func(_ int, card *goquery.Selection) {
		card.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			if !isJobURL(href) {
				return
			}
			title := cleanText(link.Text())
			if isSkipText(title) {
				return
			}
			out = append(out, candidate{
				company:  inferCompany(card, link),
				title:    title,
				url:      href,
				location: inferLocation(card),
			})
		})
	})
	return out
}

// atsLinks collects every anchor pointing at a job board. When the anchor
// text is unusable the title is derived from the URL path.
func atsLinks(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !ats.IsJobBoardURL(href) {
			return
		}
		title := cleanText(link.Text())
		if isSkipText(title) {
			title = titleFromURL(href)
		}
		if title == "" {
			return
		}
		parent := link.Parent()
		out = append(out, candidate{
			company:  inferCompany(parent, link),
			title:    title,
			url:      href,
			location: inferLocation(parent),
		})
	})
	return out
}

// jobPathLinks is the last resort: any anchor with a job-like path.
func jobPathLinks(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !jobPathPattern.MatchString(href) {
			return
		}
		title := cleanText(link.Text())
		if isSkipText(title) {
			return
		}
		parent := link.Parent()
		out = append(out, candidate{
			company:  inferCompany(parent, link),
			title:    title,
			url:      href,
			location: inferLocation(parent),
		})
	})
	return out
}

func firstJobLink(row *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if isJobURL(href) {
			found = link
			return false
		}
		return true
	})
	return found
}
