package models

import "time"

// Scraper log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusFailure = "failure"
)

// ScraperLog is one entry in the append-only audit trail. Written once per
// pipeline action, never read by the pipeline itself.
type ScraperLog struct {
	ID        string                 `json:"id" badgerhold:"key"`
	Issuer    string                 `json:"issuer" badgerhold:"index"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
}
