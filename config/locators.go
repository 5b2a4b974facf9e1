package config

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Locators maps every scraped field to the CSS selector that finds it.
// A Locators value is shared read-only by all parses.
type Locators struct {
	ListingLink     string `yaml:"listing_link"`
	Title           string `yaml:"title"`
	Author          string `yaml:"author"`
	Rating          string `yaml:"rating"`
	RatingsCount    string `yaml:"ratings_count"`
	ReviewsCount    string `yaml:"reviews_count"`
	PagesFormat     string `yaml:"pages_format"`
	PublicationInfo string `yaml:"publication_info"`
	Genres          string `yaml:"genres"`
}

// DefaultLocators returns the selectors for the current Goodreads layout.
func DefaultLocators() Locators {
	return Locators{
		ListingLink:     "a.bookTitle",
		Title:           "h1[data-testid='bookTitle']",
		Author:          "span.ContributorLink__name[data-testid='name']",
		Rating:          "div.RatingStatistics__rating",
		RatingsCount:    "span[data-testid='ratingsCount']",
		ReviewsCount:    "span[data-testid='reviewsCount']",
		PagesFormat:     "div.FeaturedDetails p[data-testid='pagesFormat']",
		PublicationInfo: "div.FeaturedDetails p[data-testid='publicationInfo']",
		Genres:          "div.BookPageMetadataSection__genres[data-testid='genresList'] span.Button__labelItem",
	}
}

// LoadLocators reads a YAML locator file. Keys missing from the file keep
// their default selector.
func LoadLocators(path string) (Locators, error) {
	locators := DefaultLocators()
	if path == "" {
		return locators, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Locators{}, fmt.Errorf("read locators file: %w", err)
	}
	if err := yaml.Unmarshal(data, &locators); err != nil {
		return Locators{}, fmt.Errorf("parse locators file: %w", err)
	}
	if err := locators.Validate(); err != nil {
		return Locators{}, err
	}
	return locators, nil
}

// Validate compiles every selector so layout mistakes surface before any
// request is issued.
func (l Locators) Validate() error {
	for _, field := range l.fields() {
		if field.selector == "" {
			return fmt.Errorf("locator %s cannot be empty", field.name)
		}
		if _, err := cascadia.Compile(field.selector); err != nil {
			return fmt.Errorf("locator %s: invalid selector %q: %w", field.name, field.selector, err)
		}
	}
	return nil
}

type namedSelector struct {
	name     string
	selector string
}

func (l Locators) fields() []namedSelector {
	return []namedSelector{
		{"listing_link", l.ListingLink},
		{"title", l.Title},
		{"author", l.Author},
		{"rating", l.Rating},
		{"ratings_count", l.RatingsCount},
		{"reviews_count", l.ReviewsCount},
		{"pages_format", l.PagesFormat},
		{"publication_info", l.PublicationInfo},
		{"genres", l.Genres},
	}
}
