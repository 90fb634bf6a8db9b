package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/app"
	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/models"
	"github.com/ternarybob/etfwatch/internal/services/scraper"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	issuerKey    = flag.String("issuer", "", "Scrape only this issuer key (e.g. yuanta)")
	tickerFlag   = flag.String("ticker", "", "Scrape only this ticker (requires -issuer)")
	forceWrite   = flag.Bool("force", false, "Rewrite holdings even when identical to stored data")
	runSchedule  = flag.Bool("schedule", false, "Run as a daemon on the configured cron schedule")
	showStatus   = flag.Bool("status", false, "Print store statistics and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("etfwatch version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("etfwatch.toml"); err == nil {
			configFiles = append(configFiles, "etfwatch.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// 2. Initialize logger with final configuration
	logger := common.InitLogger(config)

	// 3. Print banner
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Int("issuers", len(config.Issuers)).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *showStatus:
		if err := printStatus(application); err != nil {
			logger.Error().Err(err).Msg("Status query failed")
			os.Exit(1)
		}

	case *runSchedule:
		runScheduler(application, logger)

	default:
		if !runOnce(application, logger) {
			application.Close()
			os.Exit(1)
		}
	}
}

// runOnce executes a single batch (all issuers, one issuer, or one ticker)
// and reports success.
func runOnce(application *app.App, logger arbor.ILogger) bool {
	ctx, cancel := signalContext(logger)
	defer cancel()

	application.ScraperService.Force = *forceWrite

	var report *models.BatchReport

	switch {
	case *issuerKey != "" && *tickerFlag != "":
		profile, err := application.ScraperService.IssuerProfileOrError(*issuerKey)
		if err != nil {
			logger.Error().Err(err).Msg("Cannot run single-ticker scrape")
			return false
		}
		report = &models.BatchReport{}
		report.Add(application.ScraperService.ScrapeTicker(ctx, profile, *tickerFlag))

	case *issuerKey != "":
		profile, err := application.ScraperService.IssuerProfileOrError(*issuerKey)
		if err != nil {
			logger.Error().Err(err).Msg("Cannot run issuer scrape")
			return false
		}
		report = &models.BatchReport{}
		application.ScraperService.ScrapeIssuer(ctx, profile, report)

	default:
		report = application.ScraperService.ScrapeAll(ctx)
	}

	fmt.Println(scraper.RenderReport(report))

	logger.Info().
		Int("tickers", len(report.Results)).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Int("retries", report.Retries()).
		Msg("Batch finished")

	return report.Success()
}

// runScheduler starts the cron loop and blocks until interrupted.
func runScheduler(application *app.App, logger arbor.ILogger) {
	schedule := application.Config.Scheduler.Schedule

	if err := application.SchedulerService.Start(schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().Str("schedule", schedule).Msg("Scheduler running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}

// printStatus dumps store counts and the most recent scrape log entries.
func printStatus(application *app.App) error {
	ctx := context.Background()
	storage := application.StorageManager

	etfs, err := storage.ETFStorage().CountETFs(ctx)
	if err != nil {
		return err
	}
	holdings, err := storage.HoldingStorage().CountAllHoldings(ctx)
	if err != nil {
		return err
	}
	logCount, err := storage.ScraperLogStorage().CountLogs(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("ETFs:         %d\n", etfs)
	fmt.Printf("Holdings:     %d\n", holdings)
	fmt.Printf("Scraper logs: %d\n", logCount)

	recent, err := storage.ScraperLogStorage().GetRecentLogs(ctx, 10)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Println("\nRecent activity:")
		for _, entry := range recent {
			fmt.Printf("  %s  %-8s %-14s %s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.Issuer, entry.Action, entry.Status)
		}
	}

	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(logger arbor.ILogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Info().Msg("Interrupt signal received, cancelling batch")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
