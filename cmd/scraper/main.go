package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-listopia/config"
	"github.com/aluiziolira/go-scrape-listopia/models"
	"github.com/aluiziolira/go-scrape-listopia/pipeline"
	"github.com/aluiziolira/go-scrape-listopia/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := config.DefaultConfig()
	return &cli.App{
		Name:  "scraper",
		Usage: "export the books of a Goodreads list to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "list URL to export, e.g. " + defaults.ListPrefix + "1.Best_Books_Ever", EnvVars: []string{"SCRAPER_URL"}},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: defaults.OutputFile, Usage: "output file path", EnvVars: []string{"SCRAPER_OUTPUT"}},
			&cli.IntFlag{Name: "pages", Aliases: []string{"p"}, Value: defaults.Pages, Usage: fmt.Sprintf("number of list pages to scrape (1-%d)", config.MaxPages), EnvVars: []string{"SCRAPER_PAGES"}},
			&cli.StringFlag{Name: "format", Value: defaults.OutputFormat, Usage: "output format: csv, json, dual, or sqlite", EnvVars: []string{"SCRAPER_FORMAT"}},
			&cli.IntFlag{Name: "parallel", Value: defaults.Parallelism, Usage: "maximum concurrent requests", EnvVars: []string{"SCRAPER_PARALLEL"}},
			&cli.DurationFlag{Name: "timeout", Value: defaults.Timeout, Usage: "per-request timeout"},
			&cli.BoolFlag{Name: "skip-failed", Usage: "skip book pages that fail to download instead of aborting"},
			&cli.BoolFlag{Name: "dedupe", Usage: "drop books that appear more than once"},
			&cli.StringFlag{Name: "locators", Usage: "YAML file overriding the CSS locators", EnvVars: []string{"SCRAPER_LOCATORS"}},
			&cli.BoolFlag{Name: "respect-robots", Usage: "respect robots.txt directives"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Prometheus metrics listen address (e.g. :9090)", EnvVars: []string{"SCRAPER_METRICS_ADDR"}},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable verbose logging"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger, level := newLogger(c.Bool("verbose"))
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfig(c)
	if err := promptMissing(c, cfg); err != nil {
		return cli.Exit(fmt.Sprintf("reading input: %v", err), 2)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}

	locators, err := config.LoadLocators(cfg.LocatorsFile)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid locators: %v", err), 2)
	}

	s, err := scraper.NewScraper(cfg, locators)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer shutdownMetricsServer(metricsServer)

	if isTerminal(os.Stderr) && !cfg.Verbose {
		bar := progressbar.Default(int64(cfg.Pages), "scraping")
		s.OnPage = func(p scraper.PageProgress) {
			_ = bar.Add(1)
		}
		defer func() { _ = bar.Finish() }()
	}

	var opts []pipeline.Option
	if cfg.Dedupe {
		opts = append(opts, pipeline.WithDedupe(cfg.DedupeMaxSize))
	}
	p, err := pipeline.NewPipeline(s, func() (pipeline.OutputWriter, error) {
		return pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	}, opts...)
	if err != nil {
		return fmt.Errorf("initialising pipeline: %w", err)
	}

	result, err := p.Run(ctx, cfg.ListURL, cfg.Pages)
	if err != nil {
		var stageErr *scraper.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("%s fetch failed on page %d, no output written: %w", stageErr.Stage, stageErr.Page, err)
		}
		return err
	}

	printSummary(result, cfg.OutputFile, p.GetMetrics())
	return nil
}

func buildConfig(c *cli.Context) *config.Config {
	cfg := config.DefaultConfig()
	cfg.ListURL = strings.TrimSpace(c.String("url"))
	cfg.OutputFile = c.String("output")
	cfg.Pages = c.Int("pages")
	cfg.OutputFormat = strings.ToLower(c.String("format"))
	cfg.Parallelism = c.Int("parallel")
	cfg.Timeout = c.Duration("timeout")
	cfg.SkipFailedDetails = c.Bool("skip-failed")
	cfg.Dedupe = c.Bool("dedupe")
	cfg.LocatorsFile = c.String("locators")
	cfg.RespectRobotsTxt = c.Bool("respect-robots")
	cfg.MetricsAddr = c.String("metrics-addr")
	cfg.Verbose = c.Bool("verbose")
	return cfg
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func shutdownMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(result *models.ScraperResult, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)
	stats := result.Stats

	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Run:           %s\n", result.RunID)
	fmt.Printf("  Books written: %d\n", result.TotalCount)
	fmt.Printf("  Pages:         %d\n", stats.PageCount)
	fmt.Printf("  Requests:      %d\n", stats.RequestCount)
	fmt.Printf("  Incomplete:    %d\n", stats.RejectedCount)
	if stats.SkippedCount > 0 {
		fmt.Printf("  Skipped:       %d\n", stats.SkippedCount)
	}
	if len(stats.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", stats.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
