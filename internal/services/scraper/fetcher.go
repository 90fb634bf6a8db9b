package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/models"
)

// Fetcher performs plain HTTP fetches for issuers whose sites serve
// holdings without client-side rendering.
type Fetcher struct {
	client *http.Client
	config *common.ScraperConfig
	logger arbor.ILogger
}

// NewFetcher creates a fetcher with the configured request timeout.
func NewFetcher(config *common.ScraperConfig, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: config.RequestTimeoutD(),
		},
		config: config,
		logger: logger,
	}
}

// FetchPage retrieves the ticker's product page HTML.
func (f *Fetcher) FetchPage(ctx context.Context, profile *models.IssuerProfile, ticker string) (string, error) {
	pageURL := fmt.Sprintf(profile.ProductURL, ticker)
	body, err := f.get(ctx, pageURL, "text/html")
	if err != nil {
		return "", &models.FetchError{Ticker: ticker, Cause: err}
	}
	return string(body), nil
}

// FetchHoldingsAPI retrieves the raw JSON holdings payload, if the issuer
// exposes one.
func (f *Fetcher) FetchHoldingsAPI(ctx context.Context, profile *models.IssuerProfile, ticker string) ([]byte, error) {
	if !profile.HasHoldingsAPI() {
		return nil, fmt.Errorf("issuer %s has no holdings API", profile.Key)
	}

	apiURL := fmt.Sprintf(profile.HoldingsAPI, ticker)
	body, err := f.get(ctx, apiURL, "application/json")
	if err != nil {
		return nil, &models.FetchError{Ticker: ticker, Cause: err}
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	f.logger.Debug().
		Str("url", url).
		Int("bytes", len(body)).
		Str("duration", time.Since(start).String()).
		Msg("HTTP fetch completed")

	return body, nil
}
