package models

import (
	"fmt"
	"time"
)

// Extraction methods recorded on a HoldingsSnapshot.
const (
	MethodCSVFile   = "csv_file"
	MethodHTMLTable = "html_table"
	MethodTextRegex = "text_regex"
	MethodAPI       = "api"
)

// Holding represents one fund's position in one underlying security on one
// date. Date is the as-of date of the snapshot, not the scrape time.
// Validation tags carry the acceptance predicate; the stockcode and
// stockname rules are registered in the scraper package.
type Holding struct {
	ID          string    `json:"id" badgerhold:"key"`
	ETFTicker   string    `json:"etf_ticker" badgerhold:"index" validate:"required"`
	Date        string    `json:"date" badgerhold:"index" validate:"required"` // "YYYY-MM-DD"
	StockCode   string    `json:"stock_code" validate:"required,len=4,stockcode"`
	StockName   string    `json:"stock_name" validate:"required,min=2,max=20,stockname"`
	Weight      float64   `json:"weight" validate:"gte=0,lte=100"` // percent
	Shares      int64     `json:"shares" validate:"gt=0"`
	MarketValue float64   `json:"market_value,omitempty"`
	SourceFile  string    `json:"source_file,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupKey identifies the reconciliation unit this holding belongs to.
func (h *Holding) GroupKey() string {
	return h.ETFTicker + "/" + h.Date
}

// CompositeKey is the comparison key used for duplicate detection across
// scrape runs. Two holdings with equal composite keys are considered the
// same row.
func (h *Holding) CompositeKey() string {
	return fmt.Sprintf("%s|%s|%.4f|%d", h.StockCode, h.StockName, h.Weight, h.Shares)
}

// RawHolding is an as-extracted, not-yet-validated record. All fields are
// strings exactly as they appeared in the source file or markup.
type RawHolding struct {
	StockCode   string `json:"stock_code"`
	StockName   string `json:"stock_name"`
	Shares      string `json:"shares"`
	Weight      string `json:"weight"`
	MarketValue string `json:"market_value,omitempty"`
}

// HoldingsSnapshot is the working unit passed between pipeline stages: the
// full set of validated positions for one fund as of one date, plus
// provenance.
type HoldingsSnapshot struct {
	ETFTicker     string    `json:"etf_ticker"`
	Date          string    `json:"date"`
	Holdings      []Holding `json:"holdings"`
	SourceFile    string    `json:"source_file,omitempty"`
	Method        string    `json:"method"`
	ExtractedAt   time.Time `json:"extracted_at"`
	RejectedCount int       `json:"rejected_count"`
}
