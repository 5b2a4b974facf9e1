// Package pipeline runs a scrape to completion and hands the books to an
// output sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-listopia/models"
	"github.com/aluiziolira/go-scrape-listopia/parser"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// Runner produces the full list of books for a listing.
type Runner interface {
	Run(ctx context.Context, listURL string, pages int) ([]*models.Book, error)
	Stats() models.ScrapeStats
}

// loggerSetter is implemented by runners that accept a run-scoped logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// WriterFactory opens the output sink. It is only called once the scrape
// has succeeded.
type WriterFactory func() (OutputWriter, error)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithDedupe drops books whose URL was already written, remembering at most
// size URLs.
func WithDedupe(size int) Option {
	return func(p *Pipeline) error {
		cache, err := lru.New[string, struct{}](size)
		if err != nil {
			return fmt.Errorf("create dedupe cache: %w", err)
		}
		p.seen = cache
		return nil
	}
}

// Pipeline coordinates the scrape, validation, optional de-duplication and
// output writing.
type Pipeline struct {
	runner    Runner
	newWriter WriterFactory
	seen      *lru.Cache[string, struct{}]

	metrics metrics
}

// NewPipeline builds a pipeline around runner and the sink factory.
func NewPipeline(runner Runner, newWriter WriterFactory, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		runner:    runner,
		newWriter: newWriter,
		metrics:   newMetrics(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run scrapes listURL and writes the result. When the scrape fails nothing
// is written and no output file is created.
func (p *Pipeline) Run(ctx context.Context, listURL string, pages int) (*models.ScraperResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := slog.With(slog.String("run_id", runID))
	logger.Info("starting scrape",
		slog.String("url", listURL),
		slog.Int("pages", pages),
	)
	if ls, ok := p.runner.(loggerSetter); ok {
		ls.SetLogger(logger)
	}

	books, err := p.runner.Run(ctx, listURL, pages)
	if err != nil {
		logger.Error("scrape failed, no output written", slog.Any("error", err))
		return nil, fmt.Errorf("scrape: %w", err)
	}

	prepared := make([]*models.Book, 0, len(books))
	for _, book := range books {
		if p.prepare(book) {
			prepared = append(prepared, book)
		}
	}

	if err := p.write(prepared); err != nil {
		logger.Error("writing output failed", slog.Any("error", err))
		return nil, err
	}

	logger.Info("scrape complete",
		slog.Int("books", len(prepared)),
		slog.Duration("duration", time.Since(start)),
	)

	return &models.ScraperResult{
		RunID:      runID,
		Books:      prepared,
		StartTime:  start,
		EndTime:    time.Now(),
		TotalCount: len(prepared),
		Stats:      p.runner.Stats(),
	}, nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) write(books []*models.Book) (err error) {
	writer, err := p.newWriter()
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close writer: %w", cerr)
		}
	}()

	if err := writer.Write(books); err != nil {
		return fmt.Errorf("write books: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	return nil
}

func (p *Pipeline) prepare(book *models.Book) bool {
	if err := parser.ValidateBook(book); err != nil {
		p.metrics.addValidation("invalid_record")
		return false
	}

	if p.seen != nil {
		key := book.URL
		if key == "" {
			key = book.Title + "\x00" + book.Author
		}
		if p.seen.Contains(key) {
			p.metrics.addValidation("duplicate_url")
			return false
		}
		p.seen.Add(key, struct{}{})
	}

	p.metrics.incrementProcessed()
	return true
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_books":   m.processed,
		"validation_errors": copyValidation,
	}
}
