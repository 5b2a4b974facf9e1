package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the absolute detail-page URL of every anchor matching
// selector, in document order. Anchors without a usable href are skipped.
func ExtractLinks(doc *goquery.Document, selector, origin string) []string {
	links := []string{}
	if doc == nil {
		return links
	}
	base, err := url.Parse(origin)
	if err != nil {
		return links
	}

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links
}
