package models

import (
	"fmt"
	"time"
)

// FetchError wraps a network or timeout failure reaching the source site.
// Retryable at the pipeline-attempt level.
type FetchError struct {
	Ticker string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for ticker %s: %v", e.Ticker, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// AffordanceNotFoundError indicates no export control matched any configured
// selector within the wait budget. Retryable with a fresh session.
type AffordanceNotFoundError struct {
	Ticker    string
	Selectors []string
}

func (e *AffordanceNotFoundError) Error() string {
	return fmt.Sprintf("no export affordance found for ticker %s (tried %d selectors)", e.Ticker, len(e.Selectors))
}

// DownloadTimeoutError indicates the export click was triggered but no new
// file appeared in the download directory within the poll budget.
type DownloadTimeoutError struct {
	Ticker string
	Dir    string
	Waited time.Duration
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("download for ticker %s did not appear in %s within %s", e.Ticker, e.Dir, e.Waited)
}

// NoHoldingsError indicates every extraction strategy yielded nothing for a
// ticker. Not retried within the same attempt.
type NoHoldingsError struct {
	Ticker string
}

func (e *NoHoldingsError) Error() string {
	return fmt.Sprintf("no holdings extracted for ticker %s", e.Ticker)
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
