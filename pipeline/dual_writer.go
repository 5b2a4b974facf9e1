package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-listopia/models"
)

var errExportDiscarded = errors.New("dual export discarded after a failed write")

// DualJSONPath returns the JSON lines file written next to a CSV export
// ("out/books.csv" -> "out/books.jsonl").
func DualJSONPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".jsonl"
}

// DualWriter exports the same books as CSV and as JSON lines. A failure to
// open, write or validate either half removes both files.
type DualWriter struct {
	csvPath  string
	jsonPath string
	csv      *CSVWriter
	jsonl    *JSONWriter

	mu        sync.Mutex
	discarded bool
}

// NewDualWriter opens both exports.
func NewDualWriter(csvPath, jsonPath string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv export: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonPath)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("open jsonl export: %w", err),
			discardFile(csvWriter, csvPath),
		)
	}

	return &DualWriter{
		csvPath:  csvPath,
		jsonPath: jsonPath,
		csv:      csvWriter,
		jsonl:    jsonWriter,
	}, nil
}

// Write appends books to both exports.
func (dw *DualWriter) Write(books []*models.Book) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.discarded {
		return errExportDiscarded
	}
	if err := dw.csv.Write(books); err != nil {
		return dw.discard(fmt.Errorf("write csv export: %w", err))
	}
	if err := dw.jsonl.Write(books); err != nil {
		return dw.discard(fmt.Errorf("write jsonl export: %w", err))
	}
	return nil
}

// Close closes both exports. It is a no-op once they were discarded.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.discarded {
		return nil
	}
	var errs []error
	if err := dw.csv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close csv export: %w", err))
	}
	if err := dw.jsonl.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close jsonl export: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks both exports and discards them when either is invalid.
func (dw *DualWriter) Validate() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.discarded {
		return errExportDiscarded
	}
	var errs []error
	if err := dw.csv.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("csv export: %w", err))
	}
	if err := dw.jsonl.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("jsonl export: %w", err))
	}
	if len(errs) > 0 {
		return dw.discard(errors.Join(errs...))
	}
	return nil
}

// discard must be called with dw.mu held.
func (dw *DualWriter) discard(cause error) error {
	dw.discarded = true
	return errors.Join(
		cause,
		discardFile(dw.csv, dw.csvPath),
		discardFile(dw.jsonl, dw.jsonPath),
	)
}

// discardFile closes w and removes the file it was writing.
func discardFile(w io.Closer, path string) error {
	_ = w.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
