package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-listopia/config"
	"github.com/aluiziolira/go-scrape-listopia/models"
	"github.com/aluiziolira/go-scrape-listopia/parser"
	"golang.org/x/sync/errgroup"
)

// PageProgress describes one aggregated listing page.
type PageProgress struct {
	Page     int
	Pages    int
	Links    int
	Accepted int
	Rejected int
	Skipped  int
}

// Scraper walks the pages of a list, fetching every linked book page.
type Scraper struct {
	cfg     *config.Config
	fetcher Fetcher
	parser  *parser.Parser
	logger  *slog.Logger
	Metrics *Metrics

	// OnPage, when set, is called after each page has been aggregated.
	OnPage func(PageProgress)

	requestCount  int64
	pageCount     int64
	acceptedCount int64
	rejectedCount int64
	skippedCount  int64
	errorCount    int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// New assembles a scraper from its collaborators.
func New(cfg *config.Config, fetcher Fetcher, p *parser.Parser, metrics *Metrics) *Scraper {
	return &Scraper{
		cfg:          cfg,
		fetcher:      fetcher,
		parser:       p,
		logger:       slog.Default(),
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}
}

// NewScraper builds a scraper backed by a colly fetcher configured from cfg.
func NewScraper(cfg *config.Config, locators config.Locators) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewCollyFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return New(cfg, fetcher, parser.New(locators), metrics), nil
}

// SetLogger replaces the logger used for the run. Call it before Run.
func (s *Scraper) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// ListingTarget returns the URL of page number page of listURL.
func ListingTarget(listURL string, page int) string {
	u, err := url.Parse(listURL)
	if err != nil {
		return fmt.Sprintf("%s?page=%d", listURL, page)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Run scrapes pages 1..pages of listURL in order and returns every complete
// book. Any fetch failure aborts the run with no partial result, unless the
// config asks for failed detail pages to be skipped.
func (s *Scraper) Run(ctx context.Context, listURL string, pages int) ([]*models.Book, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	books := []*models.Book{}
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageBooks, err := s.scrapePage(ctx, listURL, page, pages)
		if err != nil {
			return nil, err
		}
		books = append(books, pageBooks...)
	}
	return books, nil
}

func (s *Scraper) scrapePage(ctx context.Context, listURL string, page, pages int) ([]*models.Book, error) {
	target := ListingTarget(listURL, page)
	s.logger.Info("scraping page",
		slog.Int("page", page),
		slog.Int("pages", pages),
		slog.String("url", target),
	)

	listing, err := s.fetch(ctx, StageListing, target)
	if err != nil {
		return nil, &StageError{Stage: StageListing, Page: page, URL: target, Err: err}
	}

	links := parser.ExtractLinks(listing, s.parser.Locators().ListingLink, s.cfg.BaseURL)
	docs, err := s.fetchDetails(ctx, page, links)
	if err != nil {
		return nil, err
	}

	progress := PageProgress{Page: page, Pages: pages, Links: len(links)}
	books := make([]*models.Book, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			progress.Skipped++
			continue
		}
		res := s.parser.Parse(doc)
		if !res.Complete() {
			progress.Rejected++
			s.logger.Debug("dropping incomplete book",
				slog.String("url", links[i]),
				slog.Any("missing", res.Missing),
			)
			continue
		}
		book := res.Book
		book.URL = links[i]
		books = append(books, &book)
		s.logger.Info("parsed book",
			slog.String("title", book.Title),
			slog.String("author", book.Author),
			slog.String("url", book.URL),
		)
	}
	progress.Accepted = len(books)

	atomic.AddInt64(&s.pageCount, 1)
	atomic.AddInt64(&s.acceptedCount, int64(progress.Accepted))
	atomic.AddInt64(&s.rejectedCount, int64(progress.Rejected))
	atomic.AddInt64(&s.skippedCount, int64(progress.Skipped))
	s.Metrics.IncPages()
	s.Metrics.AddItems(progress.Accepted)
	s.Metrics.AddRejected(progress.Rejected)

	s.logger.Debug("page aggregated",
		slog.Int("page", page),
		slog.Int("links", progress.Links),
		slog.Int("accepted", progress.Accepted),
		slog.Int("rejected", progress.Rejected),
		slog.Int("skipped", progress.Skipped),
	)
	if s.OnPage != nil {
		s.OnPage(progress)
	}
	return books, nil
}

// fetchDetails fetches every link concurrently and returns the documents in
// link order. A nil entry marks a page skipped after a failed fetch.
func (s *Scraper) fetchDetails(ctx context.Context, page int, links []string) ([]*goquery.Document, error) {
	docs := make([]*goquery.Document, len(links))

	var g errgroup.Group
	for i, link := range links {
		g.Go(func() error {
			doc, err := s.fetch(ctx, StageDetail, link)
			if err == nil {
				docs[i] = doc
				return nil
			}
			if s.cfg.SkipFailedDetails {
				s.Metrics.IncSkipped()
				s.logger.Warn("skipping detail page",
					slog.Int("page", page),
					slog.String("url", link),
					slog.Any("error", err),
				)
				return nil
			}
			return &StageError{Stage: StageDetail, Page: page, URL: link, Err: err}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Scraper) fetch(ctx context.Context, stage, target string) (*goquery.Document, error) {
	atomic.AddInt64(&s.requestCount, 1)
	s.Metrics.IncRequest(stage)

	doc, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		category := errorTypeLabel(err)
		atomic.AddInt64(&s.errorCount, 1)
		s.mu.Lock()
		s.errorsByType[category]++
		s.mu.Unlock()
		s.Metrics.IncError(category)
		return nil, err
	}
	return doc, nil
}

// Stats returns a snapshot of the run counters.
func (s *Scraper) Stats() models.ScrapeStats {
	return models.ScrapeStats{
		PageCount:     int(atomic.LoadInt64(&s.pageCount)),
		RequestCount:  int(atomic.LoadInt64(&s.requestCount)),
		AcceptedCount: int(atomic.LoadInt64(&s.acceptedCount)),
		RejectedCount: int(atomic.LoadInt64(&s.rejectedCount)),
		SkippedCount:  int(atomic.LoadInt64(&s.skippedCount)),
		ErrorCount:    int(atomic.LoadInt64(&s.errorCount)),
		ErrorsByType:  s.snapshotErrors(),
	}
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
