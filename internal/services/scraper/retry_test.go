package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/models"
)

func TestRetrySucceedsOnLaterAttempt(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	attempts, err := policy.Execute(context.Background(), arbor.NewLogger(), func(attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	wantErr := errors.New("still failing")
	attempts, err := policy.Execute(context.Background(), arbor.NewLogger(), func(attempt int) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, attempts)
}

func TestRetryNoHoldingsNotRetried(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	attempts, err := policy.Execute(context.Background(), arbor.NewLogger(), func(attempt int) error {
		calls++
		return &models.NoHoldingsError{Ticker: "0050"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls, "deterministic failures must not burn the retry budget")
}

func TestRetryStoreErrorNotRetried(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	_, err := policy.Execute(context.Background(), arbor.NewLogger(), func(attempt int) error {
		calls++
		return &models.StoreError{Op: "replace_holdings", Cause: errors.New("disk full")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryAffordanceRetried(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)

	calls := 0
	_, err := policy.Execute(context.Background(), arbor.NewLogger(), func(attempt int) error {
		calls++
		return &models.AffordanceNotFoundError{Ticker: "0050"}
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls, "a missing affordance may be a rendering race, retry it")
}

func TestCalculateBackoffLinearWithJitter(t *testing.T) {
	policy := NewRetryPolicy(5, 100*time.Millisecond)

	for attempt := 1; attempt <= 4; attempt++ {
		base := time.Duration(attempt) * 100 * time.Millisecond
		lo := time.Duration(float64(base) * 0.75)
		hi := time.Duration(float64(base) * 1.25)

		for i := 0; i < 50; i++ {
			d := policy.CalculateBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetryRespectsContextCancel(t *testing.T) {
	policy := NewRetryPolicy(5, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := policy.Execute(ctx, arbor.NewLogger(), func(attempt int) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
