package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-listopia/models"
)

const (
	nbsp          = "\u00a0"
	narrowNbsp    = "\u202f"
	firstPubLabel = "First published"
	pubLabel      = "Published"
)

// ValidateBook ensures a record carries every required field.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	required := []struct {
		name  string
		value string
	}{
		{"author", b.Author},
		{"rating", b.Rating},
		{"original_publish_date", b.OriginalPublishDate},
		{"number_of_pages", b.NumberOfPages},
		{"number_of_ratings", b.NumberOfRatings},
		{"number_of_reviews", b.NumberOfReviews},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("book missing %s for %s", field.name, b.Title)
		}
	}
	return nil
}

// NormalizeText trims surrounding whitespace; blank text counts as missing.
func NormalizeText(raw string, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	text := strings.TrimSpace(raw)
	return text, text != ""
}

// NormalizePageCount keeps the number in front of the unit ("312 pages" ->
// "312").
func NormalizePageCount(raw string, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	count, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	count = strings.TrimSpace(count)
	return count, count != ""
}

// NormalizePublicationDate strips the "First published" label, falling back
// to a bare "Published" label.
func NormalizePublicationDate(raw string, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	label := firstPubLabel
	if !strings.Contains(raw, firstPubLabel) {
		label = pubLabel
	}
	_, date, found := strings.Cut(raw, label)
	if !found {
		return "", false
	}
	date = strings.TrimSpace(date)
	return date, date != ""
}

// NormalizeCount keeps the part of a ratings or reviews label before the
// first non-breaking space, without thousands separators
// ("1,234\u00a0ratings" -> "1234").
func NormalizeCount(raw string, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	token, _, _ := strings.Cut(raw, nbsp)
	token = strings.NewReplacer(",", "", narrowNbsp, "").Replace(token)
	token = strings.TrimSpace(token)
	return token, token != ""
}
