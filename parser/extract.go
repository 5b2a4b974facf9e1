// Package parser turns fetched HTML into book records.
package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// genre labels that are UI affordances rather than data
var genreSentinels = map[string]struct{}{
	"...more": {},
	"…more":   {},
}

// NewDocument parses body as HTML. Malformed or empty input yields an empty
// document instead of an error, so every later lookup simply finds nothing.
func NewDocument(body []byte) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

// Extract returns the text of the first node matching selector. The second
// return value is false when nothing matches.
func Extract(doc *goquery.Document, selector string) (string, bool) {
	if doc == nil || selector == "" {
		return "", false
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// ExtractAll returns the trimmed text of every node matching selector, in
// document order, skipping blanks and the "...more" expander label.
func ExtractAll(doc *goquery.Document, selector string) []string {
	values := []string{}
	if doc == nil || selector == "" {
		return values
	}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" || IsGenreSentinel(text) {
			return
		}
		values = append(values, text)
	})
	return values
}

// IsGenreSentinel reports whether text is the genre list's expand label.
func IsGenreSentinel(text string) bool {
	_, ok := genreSentinels[strings.TrimSpace(text)]
	return ok
}
