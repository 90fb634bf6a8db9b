package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/models"
)

// Exporter drives a browser session through the rendered-page flow: load
// the product page, click the export affordance, wait for the file.
type Exporter struct {
	config *common.ScraperConfig
	logger arbor.ILogger
}

// NewExporter creates an exporter with pipeline timeouts from config.
func NewExporter(config *common.ScraperConfig, logger arbor.ILogger) *Exporter {
	return &Exporter{
		config: config,
		logger: logger,
	}
}

// ExportResult carries everything a single rendered-page visit produced.
type ExportResult struct {
	FilePath string // Downloaded export file, empty if the click produced nothing
	PageHTML string // Rendered page source for the table/regex fallbacks
}

// Export loads the ticker's product page in the session, captures the
// rendered HTML, then attempts the export click and download wait.
// A missing affordance or download timeout is reported in the error but
// PageHTML is still returned so extraction fallbacks can run.
func (e *Exporter) Export(ctx context.Context, session *Session, profile *models.IssuerProfile, ticker string) (*ExportResult, error) {
	pageURL := fmt.Sprintf(profile.ProductURL, ticker)
	result := &ExportResult{}

	navCtx, navCancel := context.WithTimeout(session.Ctx, e.config.PageLoadTimeoutD())
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return nil, &models.FetchError{Ticker: ticker, Cause: fmt.Errorf("navigate %s: %w", pageURL, err)}
	}

	// Give client-side rendering a moment to populate the holdings table
	_ = chromedp.Run(session.Ctx, chromedp.Sleep(2*time.Second))

	if err := chromedp.Run(session.Ctx, chromedp.OuterHTML("html", &result.PageHTML)); err != nil {
		e.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to capture page HTML")
	}

	before, err := snapshotDir(session.DownloadDir)
	if err != nil {
		return result, fmt.Errorf("failed to snapshot download dir: %w", err)
	}

	if err := e.clickExport(session, profile, ticker); err != nil {
		return result, err
	}

	filePath, err := waitForDownload(ctx, session.DownloadDir, before, ticker,
		e.config.DownloadPollIntervalD(), e.config.DownloadTimeoutD())
	if err != nil {
		return result, err
	}

	result.FilePath = filePath
	e.logger.Info().
		Str("ticker", ticker).
		Str("file", filePath).
		Msg("Export file downloaded")

	return result, nil
}

// clickExport tries each configured selector until one resolves to a
// clickable node. Selectors prefixed "text:" match by visible text.
func (e *Exporter) clickExport(session *Session, profile *models.IssuerProfile, ticker string) error {
	waitTimeout := e.config.ElementWaitTimeoutD()

	for _, selector := range profile.ExportSelectors {
		clickCtx, cancel := context.WithTimeout(session.Ctx, waitTimeout)

		var err error
		if text, ok := strings.CutPrefix(selector, "text:"); ok {
			xpath := fmt.Sprintf(`//*[contains(normalize-space(text()), %s)]`, xpathLiteral(text))
			err = chromedp.Run(clickCtx,
				chromedp.WaitVisible(xpath, chromedp.BySearch),
				chromedp.Click(xpath, chromedp.BySearch),
			)
		} else {
			err = chromedp.Run(clickCtx,
				chromedp.WaitVisible(selector, chromedp.ByQuery),
				chromedp.Click(selector, chromedp.ByQuery),
			)
		}
		cancel()

		if err == nil {
			e.logger.Debug().
				Str("ticker", ticker).
				Str("selector", selector).
				Msg("Export affordance clicked")
			return nil
		}

		e.logger.Debug().
			Str("ticker", ticker).
			Str("selector", selector).
			Err(err).
			Msg("Export selector did not match")
	}

	return &models.AffordanceNotFoundError{
		Ticker:    ticker,
		Selectors: profile.ExportSelectors,
	}
}

// xpathLiteral quotes s for embedding in an XPath expression. Strings with
// both quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	for i, p := range parts {
		parts[i] = `'` + p + `'`
	}
	return "concat(" + strings.Join(parts, `, "'", `) + ")"
}
