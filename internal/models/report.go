package models

import "time"

// Ticker outcome statuses in a batch report.
const (
	TickerStatusOK      = "ok"
	TickerStatusSkipped = "skipped" // duplicate data, no write needed
	TickerStatusFailed  = "failed"
)

// TickerResult records the outcome of one pipeline run within a batch.
type TickerResult struct {
	Issuer   string        `json:"issuer"`
	Ticker   string        `json:"ticker"`
	Status   string        `json:"status"`
	Holdings int           `json:"holdings"`
	Attempts int           `json:"attempts"`
	Method   string        `json:"method,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// BatchReport aggregates a full scrape run across N tickers. A batch always
// completes; individual failures are recorded here, never fatal.
type BatchReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []TickerResult `json:"results"`
}

// Add appends a result to the report.
func (r *BatchReport) Add(res TickerResult) {
	r.Results = append(r.Results, res)
}

// Succeeded counts tickers that persisted or matched existing data.
func (r *BatchReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == TickerStatusOK || res.Status == TickerStatusSkipped {
			n++
		}
	}
	return n
}

// Failed counts tickers whose pipeline run failed after all retries.
func (r *BatchReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == TickerStatusFailed {
			n++
		}
	}
	return n
}

// Retries sums the extra attempts consumed across all tickers.
func (r *BatchReport) Retries() int {
	n := 0
	for _, res := range r.Results {
		if res.Attempts > 1 {
			n += res.Attempts - 1
		}
	}
	return n
}

// Success reports whether every ticker in the batch succeeded. Drives the
// process exit code.
func (r *BatchReport) Success() bool {
	return r.Failed() == 0
}
