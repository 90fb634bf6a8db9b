package scraper

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/models"
)

// Characters that never appear in a legitimate security name. Rows whose
// names contain them are parse artifacts (markup fragments, formula
// injection, shifted columns).
const stockNameBlacklist = "<>\"'=%&#{}[]()|\\;:/`~"

// Validator converts raw extracted rows into accepted holdings. Rejected
// rows are dropped and counted, never fatal.
type Validator struct {
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewValidator creates a validator with the stockname rule registered.
func NewValidator(logger arbor.ILogger) *Validator {
	v := validator.New()

	// Blacklist check plus a guard against all-numeric "names" produced by
	// column misalignment
	_ = v.RegisterValidation("stockname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if strings.ContainsAny(name, stockNameBlacklist) {
			return false
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(name, ",", ""), 64); err == nil {
			return false
		}
		return true
	})

	// Codes are decimal digits only; the builtin numeric tag also admits
	// signs and decimal points
	_ = v.RegisterValidation("stockcode", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if code == "" {
			return false
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// Normalize converts one raw row into a typed holding. Numeric fields are
// cleaned of thousands separators and percent signs before parsing.
func Normalize(raw models.RawHolding, etfTicker, date string) (models.Holding, error) {
	h := models.Holding{
		ETFTicker: etfTicker,
		Date:      date,
		StockCode: strings.TrimSpace(raw.StockCode),
		StockName: cleanName(raw.StockName),
	}

	shares, err := strconv.ParseInt(cleanNumber(raw.Shares), 10, 64)
	if err != nil {
		return h, err
	}
	h.Shares = shares

	weight, err := strconv.ParseFloat(cleanNumber(raw.Weight), 64)
	if err != nil {
		return h, err
	}
	h.Weight = weight

	if raw.MarketValue != "" {
		if mv, err := strconv.ParseFloat(cleanNumber(raw.MarketValue), 64); err == nil {
			h.MarketValue = mv
		}
	}

	return h, nil
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	return strings.TrimSpace(s)
}

func cleanName(s string) string {
	// Full-width spaces show up in issuer exports
	s = strings.ReplaceAll(s, "　", " ")
	return strings.TrimSpace(s)
}

// ValidateAndClean normalizes, validates, dedupes and sorts one extracted
// batch into a snapshot. Duplicate stock codes keep the first occurrence.
// The result is sorted weight descending.
func (v *Validator) ValidateAndClean(rows []models.RawHolding, etfTicker, date, method, sourceFile string) *models.HoldingsSnapshot {
	snapshot := &models.HoldingsSnapshot{
		ETFTicker:   etfTicker,
		Date:        date,
		Method:      method,
		SourceFile:  sourceFile,
		ExtractedAt: time.Now(),
	}

	seen := make(map[string]bool, len(rows))

	for _, raw := range rows {
		h, err := Normalize(raw, etfTicker, date)
		if err != nil {
			v.logger.Debug().
				Str("etf_ticker", etfTicker).
				Str("stock_code", raw.StockCode).
				Err(err).
				Msg("Rejected holding: unparseable numeric field")
			snapshot.RejectedCount++
			continue
		}

		if err := v.validate.Struct(&h); err != nil {
			v.logger.Debug().
				Str("etf_ticker", etfTicker).
				Str("stock_code", h.StockCode).
				Str("stock_name", h.StockName).
				Err(err).
				Msg("Rejected holding: failed validation")
			snapshot.RejectedCount++
			continue
		}

		if seen[h.StockCode] {
			v.logger.Debug().
				Str("etf_ticker", etfTicker).
				Str("stock_code", h.StockCode).
				Msg("Dropped duplicate stock code, keeping first occurrence")
			snapshot.RejectedCount++
			continue
		}
		seen[h.StockCode] = true

		snapshot.Holdings = append(snapshot.Holdings, h)
	}

	sort.SliceStable(snapshot.Holdings, func(i, j int) bool {
		return snapshot.Holdings[i].Weight > snapshot.Holdings[j].Weight
	})

	return snapshot
}
