package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-listopia/config"
	"github.com/aluiziolira/go-scrape-listopia/models"
)

// Result is the outcome of parsing one detail page. Book is only usable
// when Complete reports true.
type Result struct {
	Book    models.Book
	Missing []string
}

// Complete reports whether every required field was found.
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Parser extracts books from detail pages using a fixed locator table.
type Parser struct {
	locators config.Locators
}

// New returns a parser bound to locators.
func New(locators config.Locators) *Parser {
	return &Parser{locators: locators}
}

// Locators returns the table the parser was built with.
func (p *Parser) Locators() config.Locators {
	return p.locators
}

// Parse reads a detail page. A page missing any scalar field is reported
// incomplete; genres never cause rejection.
func (p *Parser) Parse(doc *goquery.Document) Result {
	var res Result
	field := func(name string) func(string, bool) string {
		return func(value string, ok bool) string {
			if !ok {
				res.Missing = append(res.Missing, name)
			}
			return value
		}
	}

	loc := p.locators
	res.Book = models.Book{
		Title:               field("title")(NormalizeText(Extract(doc, loc.Title))),
		Author:              field("author")(NormalizeText(Extract(doc, loc.Author))),
		Rating:              field("rating")(NormalizeText(Extract(doc, loc.Rating))),
		NumberOfRatings:     field("number_of_ratings")(NormalizeCount(Extract(doc, loc.RatingsCount))),
		NumberOfPages:       field("number_of_pages")(NormalizePageCount(Extract(doc, loc.PagesFormat))),
		OriginalPublishDate: field("original_publish_date")(NormalizePublicationDate(Extract(doc, loc.PublicationInfo))),
		NumberOfReviews:     field("number_of_reviews")(NormalizeCount(Extract(doc, loc.ReviewsCount))),
		Genres:              ExtractAll(doc, loc.Genres),
	}

	return res
}
