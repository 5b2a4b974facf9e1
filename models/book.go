// Package models defines data structures for the scraper.
package models

import "time"

// Book is one record scraped from a detail page. Every scalar field is
// populated; Genres may be empty.
type Book struct {
	Title               string   `csv:"title" json:"title"`
	Author              string   `csv:"author" json:"author"`
	OriginalPublishDate string   `csv:"original_publish_date" json:"original_publish_date"`
	Rating              string   `csv:"rating" json:"rating"`
	NumberOfRatings     string   `csv:"number_of_ratings" json:"number_of_ratings"`
	NumberOfPages       string   `csv:"number_of_pages" json:"number_of_pages"`
	NumberOfReviews     string   `csv:"number_of_reviews" json:"number_of_reviews"`
	Genres              []string `csv:"genres" json:"genres"`
	URL                 string   `csv:"-" json:"url"`
}

// ScrapeStats summarises the traffic and parse outcomes of a scraper run.
type ScrapeStats struct {
	PageCount     int
	RequestCount  int
	AcceptedCount int
	RejectedCount int
	SkippedCount  int
	ErrorCount    int
	ErrorsByType  map[string]int
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	RunID      string
	Books      []*Book
	StartTime  time.Time
	EndTime    time.Time
	TotalCount int
	Stats      ScrapeStats
}
