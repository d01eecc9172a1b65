// cmd/catalogsync/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/healthmart/catalogsync/internal/assets"
	"github.com/healthmart/catalogsync/internal/catalog"
	"github.com/healthmart/catalogsync/internal/config"
	"github.com/healthmart/catalogsync/internal/extract"
	"github.com/healthmart/catalogsync/internal/fetch"
	"github.com/healthmart/catalogsync/internal/monitoring"
	"github.com/healthmart/catalogsync/internal/pipeline"
	"github.com/healthmart/catalogsync/internal/report"
	"github.com/healthmart/catalogsync/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var logger = utils.NewComponentLogger("cli")

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "sync", "images", "brands", "categories":
		runBatch(command, os.Args[2:])

	case "pages":
		runPages(os.Args[2:])

	case "serve":
		runServe(os.Args[2:])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: catalogsync validate <config.yaml>\n")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runBatch executes one of the single-shot reconciliation runs and exits.
func runBatch(command string, args []string) {
	cfg := loadConfigOrExit(command, args)

	ctx := signalContext()
	p, cleanup, err := buildPipeline(cfg, nil)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	var run *report.Run
	switch command {
	case "sync":
		run, err = p.Sync(ctx)
	case "images":
		run, err = p.SyncImages(ctx)
	case "brands":
		run, err = p.AssignBrands(ctx)
	case "categories":
		run, err = p.AssignCategories(ctx)
	}
	finishRun(run, err)
}

// runPages executes the listing-crawl run over an explicit page range.
func runPages(args []string) {
	if len(args) < 1 || args[0] == "" {
		fmt.Fprintf(os.Stderr, "Error: config file required\n")
		fmt.Fprintf(os.Stderr, "Usage: catalogsync pages <config.yaml> [--from N] [--to N]\n")
		os.Exit(1)
	}
	configFile := args[0]

	fs := flag.NewFlagSet("pages", flag.ExitOnError)
	from := fs.Int("from", 1, "first listing page")
	to := fs.Int("to", 1, "last listing page")
	fs.Parse(args[1:])

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fatal(err)
	}

	ctx := signalContext()
	p, cleanup, err := buildPipeline(cfg, nil)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	run, err := p.Pages(ctx, *from, *to)
	finishRun(run, err)
}

// runServe starts the dashboard and, when a schedule is configured,
// periodic sync runs. It blocks until interrupted.
func runServe(args []string) {
	cfg := loadConfigOrExit("serve", args)

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	p, cleanup, err := buildPipeline(cfg, metrics)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	ctx := signalContext()

	if cfg.Serve.Schedule != "" {
		c := newScheduler()
		_, err := c.AddFunc(cfg.Serve.Schedule, func() {
			logger.Infof("scheduled sync starting")
			if _, err := p.Sync(ctx); err != nil {
				logger.Errorf("scheduled sync failed: %v", err)
			}
		})
		if err != nil {
			fatal(fmt.Errorf("invalid schedule %q: %w", cfg.Serve.Schedule, err))
		}
		c.Start()
		defer c.Stop()
		logger.Infof("sync scheduled: %s", cfg.Serve.Schedule)
	}

	dash := monitoring.NewDashboard(cfg.Report.Dir)
	errCh := make(chan error, 1)
	go func() {
		errCh <- dash.Serve(cfg.Serve.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Infof("shutting down")
	case err := <-errCh:
		fatal(err)
	}
}

// newScheduler builds the cron runner for serve mode. A sync that is
// still running when the next tick fires must not be joined by a second
// one; the tick is dropped, not queued.
func newScheduler() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
}

// cronLogger routes cron's skip and recovery messages to the component
// logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Infof("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}

func validateConfig(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
	fmt.Printf("  Name: %s\n", cfg.Name)
	fmt.Printf("  Site: %s\n", cfg.SiteBaseURL)
	fmt.Printf("  Database driver: %s\n", cfg.Database.Driver)
	fmt.Printf("  Known brands: %d\n", len(cfg.Matching.KnownBrands))
	fmt.Printf("  Categories: %d\n", len(cfg.Matching.Categories))
}

// buildPipeline assembles the component graph from configuration. The
// returned cleanup releases the fetcher and the database pool.
func buildPipeline(cfg *config.SyncConfig, metrics *monitoring.Metrics) (*pipeline.Pipeline, func(), error) {
	store, err := catalog.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	profile := fetch.DefaultHeaderProfile(cfg.Fetch.UserAgent, cfg.SiteBaseURL)

	var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(fetch.HTTPConfig{
		Profile:      profile,
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
	})

	if len(cfg.Fetch.HeadlessHosts) > 0 {
		browser, err := fetch.NewBrowserFetcher(fetch.BrowserConfig{
			Profile: profile,
			Timeout: cfg.Fetch.Timeout,
		})
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to start headless browser: %w", err)
		}
		fetcher = fetch.NewSelector(fetcher, browser, cfg.Fetch.HeadlessHosts)
	}

	if cfg.Fetch.Cache.Enabled {
		cached, err := fetch.NewCachingFetcher(fetcher, cfg.Fetch.Cache.Path, cfg.Fetch.Cache.TTL)
		if err != nil {
			fetcher.Close()
			store.Close()
			return nil, nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		if err := cached.Purge(context.Background()); err != nil {
			logger.Warnf("page cache purge failed: %v", err)
		}
		fetcher = cached
	}

	validator := assets.NewValidator(cfg.Images.AllowPromo)
	extractor := extract.New(extract.Config{
		KnownBrands:          cfg.Matching.KnownBrands,
		PriceMin:             cfg.Matching.PriceMin,
		PriceMax:             cfg.Matching.PriceMax,
		DefaultStockQuantity: cfg.Matching.DefaultStockQuantity,
		MinImagePixelArea:    cfg.Images.MinPixelArea,
		MaxImages:            cfg.Images.MaxPerProduct,
		ImageFilter:          validator.IsValidImage,
	})

	downloader := assets.NewDownloader(assets.DownloaderConfig{
		Profile:      profile,
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
	})

	matcher := catalog.NewMatcher(store, cfg.Matching)

	p := pipeline.New(pipeline.Config{
		SiteBaseURL: cfg.SiteBaseURL,
		Delay:       cfg.Fetch.Delay,
		ImagesDir:   cfg.Images.Dir,
		ReportDir:   cfg.Report.Dir,
		ExcelReport: cfg.Report.Excel,
	}, fetcher, extractor, downloader, store, matcher, metrics)

	cleanup := func() {
		fetcher.Close()
		store.Close()
	}
	return p, cleanup, nil
}

func loadConfigOrExit(command string, args []string) *config.SyncConfig {
	if len(args) < 1 || args[0] == "" {
		fmt.Fprintf(os.Stderr, "Error: config file required\n")
		fmt.Fprintf(os.Stderr, "Usage: catalogsync %s <config.yaml>\n", command)
		os.Exit(1)
	}
	cfg, err := config.LoadFromFile(args[0])
	if err != nil {
		fatal(err)
	}
	return cfg
}

// finishRun prints the outcome and chooses the exit code. A run that
// completed with per-item errors still exits zero; only a run-level
// failure is fatal.
func finishRun(run *report.Run, err error) {
	if err != nil {
		fatal(err)
	}
	if run != nil && run.Errors > 0 {
		fmt.Printf("⚠ completed with %d item errors\n", run.Errors)
	}
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("catalogsync - storefront catalog reconciliation")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  catalogsync sync <config.yaml>                    Gap-fill price and stock for products missing data")
	fmt.Println("  catalogsync images <config.yaml>                  Download images for products without any")
	fmt.Println("  catalogsync brands <config.yaml>                  Assign brands by name prefix")
	fmt.Println("  catalogsync categories <config.yaml>              Assign categories by keyword score")
	fmt.Println("  catalogsync pages <config.yaml> [--from N --to N] Crawl listing pages and reconcile discovered products")
	fmt.Println("  catalogsync serve <config.yaml>                   Run the dashboard and scheduled syncs")
	fmt.Println("  catalogsync validate <config.yaml>                Validate a configuration file")
	fmt.Println("  catalogsync version                               Show version information")
	fmt.Println("  catalogsync help                                  Show this help message")
}

func printVersion() {
	fmt.Printf("catalogsync %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
