package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// MaxPages is the largest page count a single run may request.
const MaxPages = 10

// Config holds scraper configuration.
type Config struct {
	BaseURL           string
	ListPrefix        string
	ListURL           string
	Pages             int
	Parallelism       int
	Timeout           time.Duration
	OutputFile        string
	OutputFormat      string // csv, json, dual or sqlite
	UserAgent         string
	Verbose           bool
	RespectRobotsTxt  bool
	SkipFailedDetails bool
	Dedupe            bool
	DedupeMaxSize     int
	LocatorsFile      string
	MetricsAddr       string
}

// DefaultConfig returns conservative defaults for Goodreads lists.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.goodreads.com",
		ListPrefix:        "https://www.goodreads.com/list/show/",
		Pages:             1,
		Parallelism:       16,
		Timeout:           15 * time.Second,
		OutputFile:        "books.csv",
		OutputFormat:      "csv",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:           false,
		RespectRobotsTxt:  false,
		SkipFailedDetails: false,
		Dedupe:            false,
		DedupeMaxSize:     10000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if err := ValidateListURL(c.ListURL, c.ListPrefix); err != nil {
		return err
	}
	if err := ValidatePages(c.Pages); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if err := ValidateOutputFile(c.OutputFormat, c.OutputFile); err != nil {
		return err
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Dedupe && c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

// ValidateListURL checks that raw points at a listing under prefix and does
// not already carry a page parameter.
func ValidateListURL(raw, prefix string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("list URL cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid list URL: %w", err)
	}
	if parsed.Query().Has("page") {
		return fmt.Errorf("list URL must not include a page parameter")
	}
	if prefix != "" && !strings.HasPrefix(raw, prefix) {
		return fmt.Errorf("list URL must start with %s", prefix)
	}
	return nil
}

// ValidatePages checks the requested page count.
func ValidatePages(pages int) error {
	if pages < 1 || pages > MaxPages {
		return fmt.Errorf("pages must be between 1 and %d", MaxPages)
	}
	return nil
}

var formatExtensions = map[string][]string{
	"csv":    {".csv"},
	"dual":   {".csv"},
	"json":   {".json", ".jsonl"},
	"sqlite": {".db", ".sqlite", ".sqlite3"},
}

// ValidateOutputFile checks the output format and that filename carries an
// extension matching it.
func ValidateOutputFile(format, filename string) error {
	exts, ok := formatExtensions[format]
	if !ok {
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, want := range exts {
		if ext == want {
			return nil
		}
	}
	return fmt.Errorf("output file for %s must end in %s, e.g. books%s", format, strings.Join(exts, " or "), exts[0])
}
