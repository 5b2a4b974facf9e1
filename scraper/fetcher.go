package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-listopia/config"
	"github.com/aluiziolira/go-scrape-listopia/parser"
	"github.com/gocolly/colly/v2"
)

const (
	ctxBody   = "body"
	ctxStatus = "status"
)

// Fetcher retrieves and parses one page. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// CollyFetcher fetches pages through a synchronous colly collector. Every
// call blocks until its own response arrives, so callers fan out with
// goroutines and colly's limit rule caps the parallelism.
type CollyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher configured from cfg.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
	})

	return &CollyFetcher{
		collector: collector,
		metrics:   metrics,
	}, nil
}

// Fetch downloads rawURL and parses the body. Transport failures and
// non-success statuses are returned as classified errors.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	start := time.Now()
	err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		status, _ := reqCtx.GetAny(ctxStatus).(int)
		classified := classifyError(err, status)
		slog.Error("request error",
			slog.String("url", rawURL),
			slog.Int("status", status),
			slog.String("category", errorTypeLabel(classified)),
			slog.Any("error", err),
		)
		return nil, classified
	}

	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	return parser.NewDocument(body), nil
}
