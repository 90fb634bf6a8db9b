package models

import "time"

// ETF is the static reference entity for one fund. Lifecycle is independent
// from Holding: rows are upserted by ticker whenever an issuer batch runs.
type ETF struct {
	Ticker    string    `json:"ticker" badgerhold:"key"`
	Name      string    `json:"name"`
	Issuer    string    `json:"issuer" badgerhold:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
