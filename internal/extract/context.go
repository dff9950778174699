package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// companyFromRow returns the text of the first cell that does not hold the
// job link and looks like a company name.
func companyFromRow(cells, link *goquery.Selection) string {
	node := link.Get(0)
	company := UnknownCompany
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if cell.Contains(node) {
			return true
		}
		text := cleanText(cell.Text())
		if text != "" && textLen(text) < 60 && !isSkipText(text) {
			company = text
			return false
		}
		return true
	})
	return company
}

// inferCompany guesses the company for a link inside container. It tries the
// link's previous sibling, then emphasis and paragraph tags that do not wrap
// the link, then logo alt text.
func inferCompany(container, link *goquery.Selection) string {
	if prev := link.Prev(); prev.Length() > 0 {
		text := cleanText(prev.Text())
		if text != "" && textLen(text) < 80 && !isSkipText(text) {
			return text
		}
	}

	node := link.Get(0)
	company := ""
	container.Find("strong, b, span, p").EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		if tag.Get(0) == node || tag.Contains(node) {
			return true
		}
		text := cleanText(tag.Text())
		if n := textLen(text); n > 2 && n < 60 && !isSkipText(text) {
			company = text
			return false
		}
		return true
	})
	if company != "" {
		return company
	}

	container.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		alt = cleanText(alt)
		if alt != "" && textLen(alt) < 60 {
			company = alt
			return false
		}
		return true
	})
	if company != "" {
		return company
	}
	return UnknownCompany
}
