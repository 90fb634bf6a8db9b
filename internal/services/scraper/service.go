package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/models"
)

// Service runs the scrape pipeline: fetch, extract, validate, reconcile.
// One instance serves all issuers; per-issuer behavior comes from the
// IssuerProfile.
type Service struct {
	config     *common.Config
	browser    *Browser
	fetcher    *Fetcher
	exporter   *Exporter
	extractor  *Extractor
	validator  *Validator
	reconciler *Reconciler
	storage    interfaces.StorageManager
	retry      *RetryPolicy
	limiter    *rate.Limiter
	logger     arbor.ILogger

	// Force bypasses the duplicate comparison and rewrites every group.
	Force bool
}

// NewService wires the pipeline stages together. The browser is lazy; it
// launches on the first rendered-strategy ticker.
func NewService(config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	sc := &config.Scraper

	return &Service{
		config:     config,
		browser:    NewBrowser(sc, logger),
		fetcher:    NewFetcher(sc, logger),
		exporter:   NewExporter(sc, logger),
		extractor:  NewExtractor(sc, logger),
		validator:  NewValidator(logger),
		reconciler: NewReconciler(storage.HoldingStorage(), logger),
		storage:    storage,
		retry:      NewRetryPolicy(sc.MaxAttempts, sc.RetryDelayD()),
		limiter:    rate.NewLimiter(rate.Every(sc.RequestDelayD()), 1),
		logger:     logger,
	}
}

// Shutdown releases the browser if it was launched.
func (s *Service) Shutdown() error {
	return s.browser.Shutdown()
}

// ScrapeTicker runs the full pipeline for one ticker, with retries. It
// always returns a result; the error inside the result is the final one.
func (s *Service) ScrapeTicker(ctx context.Context, profile *models.IssuerProfile, ticker string) models.TickerResult {
	start := time.Now()
	result := models.TickerResult{
		Issuer: profile.Key,
		Ticker: ticker,
	}

	var snapshot *models.HoldingsSnapshot
	var decision *models.ReconcileDecision

	attempts, err := s.retry.Execute(ctx, s.logger, func(attempt int) error {
		snap, dec, attemptErr := s.runAttempt(ctx, profile, ticker)
		if attemptErr != nil {
			return attemptErr
		}
		snapshot = snap
		decision = dec
		return nil
	})

	result.Attempts = attempts
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = models.TickerStatusFailed
		result.Error = err.Error()
		s.appendLog(ctx, profile.Key, "scrape_ticker", models.LogStatusFailure, map[string]interface{}{
			"ticker":   ticker,
			"attempts": attempts,
			"error":    err.Error(),
		})

		s.logger.Error().
			Str("issuer", profile.Key).
			Str("ticker", ticker).
			Int("attempts", attempts).
			Err(err).
			Msg("Ticker scrape failed")
		return result
	}

	result.Holdings = len(snapshot.Holdings)
	result.Method = snapshot.Method
	if decision.IsDuplicate() {
		result.Status = models.TickerStatusSkipped
	} else {
		result.Status = models.TickerStatusOK
	}

	s.appendLog(ctx, profile.Key, "scrape_ticker", models.LogStatusSuccess, map[string]interface{}{
		"ticker":   ticker,
		"date":     snapshot.Date,
		"holdings": len(snapshot.Holdings),
		"rejected": snapshot.RejectedCount,
		"method":   snapshot.Method,
		"action":   string(decision.Action),
	})

	s.logger.Info().
		Str("issuer", profile.Key).
		Str("ticker", ticker).
		Str("date", snapshot.Date).
		Int("holdings", len(snapshot.Holdings)).
		Str("method", snapshot.Method).
		Str("duration", result.Duration.String()).
		Msg("Ticker scrape completed")

	return result
}

// runAttempt is one end-to-end pass: fetch, extract, validate, commit.
func (s *Service) runAttempt(ctx context.Context, profile *models.IssuerProfile, ticker string) (*models.HoldingsSnapshot, *models.ReconcileDecision, error) {
	input := &ExtractInput{
		Ticker:       ticker,
		TableSelects: profile.TableSelectors,
	}

	// A failed source is not fatal while fallbacks remain, but if every
	// source failed to fetch the attempt must surface the fetch error so
	// the retry loop treats it as transient.
	var fetchErr error

	switch profile.Strategy {
	case models.StrategyRendered:
		if err := s.renderedFetch(ctx, profile, ticker, input); err != nil {
			// Keep whatever HTML we captured; the fallback chain may still work
			if input.PageHTML == "" && input.FilePath == "" {
				return nil, nil, err
			}
			fetchErr = err
			s.logger.Debug().
				Str("ticker", ticker).
				Err(err).
				Msg("Rendered fetch degraded, trying extraction fallbacks")
		}
	default:
		html, err := s.fetcher.FetchPage(ctx, profile, ticker)
		if err != nil {
			fetchErr = err
			s.logger.Debug().Str("ticker", ticker).Err(err).Msg("Page fetch failed")
		}
		input.PageHTML = html
	}

	output, err := s.extractor.Extract(input)
	if err != nil {
		return nil, nil, err
	}

	// API endpoint is the last resort when file and markup yielded nothing
	if len(output.Rows) == 0 && profile.HasHoldingsAPI() {
		payload, apiErr := s.fetcher.FetchHoldingsAPI(ctx, profile, ticker)
		if apiErr != nil {
			if fetchErr == nil {
				fetchErr = apiErr
			}
			s.logger.Debug().Str("ticker", ticker).Err(apiErr).Msg("Holdings API fetch failed")
		} else {
			input.APIPayload = payload
			input.FilePath = ""
			input.PageHTML = ""
			output, err = s.extractor.Extract(input)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if len(output.Rows) == 0 {
		if fetchErr != nil {
			return nil, nil, fetchErr
		}
		return nil, nil, &models.NoHoldingsError{Ticker: ticker}
	}

	date := output.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	snapshot := s.validator.ValidateAndClean(output.Rows, ticker, date, output.Method, output.SourceFile)
	if len(snapshot.Holdings) == 0 {
		return nil, nil, &models.NoHoldingsError{Ticker: ticker}
	}

	decision, err := s.reconciler.Commit(ctx, snapshot, s.Force)
	if err != nil {
		return nil, nil, err
	}

	return snapshot, decision, nil
}

// renderedFetch drives the browser flow and fills input with whatever it
// obtained. The session is always released before returning.
func (s *Service) renderedFetch(ctx context.Context, profile *models.IssuerProfile, ticker string, input *ExtractInput) error {
	if err := s.ensureBrowser(); err != nil {
		return err
	}

	downloadDir := filepath.Join(s.config.Scraper.DownloadDir, profile.Key, ticker)
	session, err := s.browser.AcquireSession(downloadDir)
	if err != nil {
		return err
	}
	defer session.Release()

	exportResult, err := s.exporter.Export(ctx, session, profile, ticker)
	if exportResult != nil {
		input.PageHTML = exportResult.PageHTML
		input.FilePath = exportResult.FilePath
	}
	return err
}

func (s *Service) ensureBrowser() error {
	if s.browser.initialized {
		return nil
	}
	return s.browser.Init()
}

// ScrapeIssuer runs every configured ticker of one issuer, pacing requests
// and continuing past individual failures.
func (s *Service) ScrapeIssuer(ctx context.Context, profile *models.IssuerProfile, report *models.BatchReport) {
	s.logger.Info().
		Str("issuer", profile.Key).
		Int("tickers", len(profile.Tickers)).
		Msg("Starting issuer scrape")

	for _, ref := range profile.Tickers {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Batch cancelled while pacing")
			return
		}
		s.pause(ctx)

		s.registerETF(ctx, profile, ref)
		report.Add(s.ScrapeTicker(ctx, profile, ref.Ticker))
	}
}

// ScrapeAll runs every issuer in configuration order and returns the batch
// report. The batch always completes; per-ticker failures are inside the
// report.
func (s *Service) ScrapeAll(ctx context.Context) *models.BatchReport {
	report := &models.BatchReport{StartedAt: time.Now()}

	for i := range s.config.Issuers {
		profile := &s.config.Issuers[i]
		if len(profile.Tickers) == 0 {
			s.logger.Debug().Str("issuer", profile.Key).Msg("Issuer has no configured tickers, skipping")
			continue
		}
		s.ScrapeIssuer(ctx, profile, report)
	}

	report.FinishedAt = time.Now()

	s.appendLog(ctx, "batch", "scrape_all", batchLogStatus(report), map[string]interface{}{
		"tickers":   len(report.Results),
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
		"retries":   report.Retries(),
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	})

	return report
}

func batchLogStatus(report *models.BatchReport) string {
	if report.Success() {
		return models.LogStatusSuccess
	}
	return models.LogStatusFailure
}

// pause sleeps the random jitter portion of the inter-ticker delay.
func (s *Service) pause(ctx context.Context) {
	maxDelay := s.config.Scraper.RandomDelayD()
	if maxDelay <= 0 {
		return
	}
	d := time.Duration(rand.Int63n(int64(maxDelay)))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// registerETF upserts fund metadata so reads can join ticker to name and
// issuer. Failures are logged, not fatal.
func (s *Service) registerETF(ctx context.Context, profile *models.IssuerProfile, ref models.ETFRef) {
	etf := &models.ETF{
		Ticker: ref.Ticker,
		Name:   ref.Name,
		Issuer: profile.Key,
	}
	if err := s.storage.ETFStorage().SaveETF(ctx, etf); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ref.Ticker).Msg("Failed to register ETF metadata")
	}
}

func (s *Service) appendLog(ctx context.Context, issuer, action, status string, details map[string]interface{}) {
	entry := &models.ScraperLog{
		Issuer:  issuer,
		Action:  action,
		Status:  status,
		Details: details,
	}
	if err := s.storage.ScraperLogStorage().AppendLog(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to append scraper log")
	}
}

// IssuerProfileOrError resolves an issuer key against configuration.
func (s *Service) IssuerProfileOrError(key string) (*models.IssuerProfile, error) {
	profile := s.config.IssuerByKey(key)
	if profile == nil {
		return nil, fmt.Errorf("unknown issuer %q", key)
	}
	return profile, nil
}
