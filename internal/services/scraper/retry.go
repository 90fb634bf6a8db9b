package scraper

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/models"
)

// RetryPolicy defines per-ticker retry behavior with linear backoff
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewRetryPolicy creates a retry policy from scraper configuration
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 5 * time.Second
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
	}
}

// CalculateBackoff returns the delay before the given attempt (1-based).
// Backoff grows linearly with the attempt number, with ±25% jitter so
// repeated batch runs do not hammer issuer sites in lockstep.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(p.BaseDelay) * float64(attempt)

	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoff += jitter

	if backoff < 0 {
		backoff = float64(p.BaseDelay)
	}
	return time.Duration(backoff)
}

// ShouldRetry reports whether a failed attempt should be retried.
// Validation and affordance failures are deterministic; retrying them
// wastes the budget.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if err == nil {
		return false
	}

	var affErr *models.AffordanceNotFoundError
	if errors.As(err, &affErr) {
		return true // page may not have finished rendering
	}

	var noHoldings *models.NoHoldingsError
	if errors.As(err, &noHoldings) {
		return false
	}

	var storeErr *models.StoreError
	if errors.As(err, &storeErr) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Execute runs fn up to MaxAttempts times, sleeping the backoff between
// attempts. It returns the attempt count alongside the final error so
// batch reporting can surface how hard each ticker was.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, fn func(attempt int) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if !p.ShouldRetry(attempt, lastErr) {
			logger.Debug().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Non-retryable error, failing immediately")
			return attempt, lastErr
		}

		if attempt < p.MaxAttempts {
			backoff := p.CalculateBackoff(attempt)
			logger.Debug().
				Int("attempt", attempt).
				Err(lastErr).
				Str("backoff", backoff.String()).
				Msg("Retrying after backoff")

			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	logger.Warn().
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return p.MaxAttempts, lastErr
}
