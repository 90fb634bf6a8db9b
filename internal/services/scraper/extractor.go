package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/models"
)

// Extractor turns whatever a fetch produced (export file, rendered HTML,
// API payload) into raw holding rows. Strategies run in a fixed order and
// an empty result falls through to the next strategy rather than failing.
type Extractor struct {
	config *common.ScraperConfig
	logger arbor.ILogger
}

// NewExtractor creates an extractor.
func NewExtractor(config *common.ScraperConfig, logger arbor.ILogger) *Extractor {
	return &Extractor{
		config: config,
		logger: logger,
	}
}

// ExtractInput bundles the sources available for one ticker attempt.
type ExtractInput struct {
	Ticker       string
	FilePath     string // Downloaded export file, may be empty
	PageHTML     string // Rendered or fetched page source, may be empty
	APIPayload   []byte // Raw JSON from the issuer API, may be empty
	TableSelects []string
}

// ExtractOutput is the raw rows plus where they came from.
type ExtractOutput struct {
	Rows       []models.RawHolding
	Date       string // Snapshot date when the source carried one
	Method     string
	SourceFile string
}

// Extract runs the strategy chain: export file, HTML table, text regex,
// API payload. The first strategy producing rows wins. No rows from any
// strategy returns an empty output, not an error.
func (x *Extractor) Extract(input *ExtractInput) (*ExtractOutput, error) {
	if input.FilePath != "" {
		rows, date, err := x.fromExportFile(input.FilePath)
		if err != nil {
			x.logger.Warn().Err(err).Str("ticker", input.Ticker).Str("file", input.FilePath).
				Msg("Export file extraction failed, falling through")
		} else if len(rows) > 0 {
			return &ExtractOutput{Rows: rows, Date: date, Method: models.MethodCSVFile, SourceFile: input.FilePath}, nil
		}
	}

	if input.PageHTML != "" {
		rows := x.fromHTMLTables(input.PageHTML, input.TableSelects, input.Ticker)
		if len(rows) > 0 {
			return &ExtractOutput{Rows: rows, Method: models.MethodHTMLTable}, nil
		}

		rows = x.fromPageText(input.PageHTML, input.Ticker)
		if len(rows) > 0 {
			return &ExtractOutput{Rows: rows, Method: models.MethodTextRegex}, nil
		}
	}

	if len(input.APIPayload) > 0 {
		rows, date, err := x.fromAPIPayload(input.APIPayload)
		if err != nil {
			x.logger.Warn().Err(err).Str("ticker", input.Ticker).
				Msg("API payload extraction failed")
		} else if len(rows) > 0 {
			return &ExtractOutput{Rows: rows, Date: date, Method: models.MethodAPI}, nil
		}
	}

	return &ExtractOutput{}, nil
}

func (x *Extractor) fromExportFile(path string) ([]models.RawHolding, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export file: %w", err)
	}
	return ParseExportCSV(data, x.config.CSVSkipRows)
}

// fromHTMLTables walks the configured table selectors and parses the first
// table whose rows look like holdings (a 4-digit code in the first cell).
func (x *Extractor) fromHTMLTables(html string, selectors []string, ticker string) []models.RawHolding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		x.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse page HTML")
		return nil
	}

	if len(selectors) == 0 {
		selectors = []string{"table"}
	}

	for _, selector := range selectors {
		var rows []models.RawHolding

		doc.Find(selector).EachWithBreak(func(_ int, table *goquery.Selection) bool {
			rows = parseHoldingsTable(table)
			return len(rows) == 0 // stop at the first table that yields rows
		})

		if len(rows) > 0 {
			x.logger.Debug().
				Str("ticker", ticker).
				Str("selector", selector).
				Int("rows", len(rows)).
				Msg("Holdings extracted from HTML table")
			return rows
		}
	}

	return nil
}

var stockCodeRe = regexp.MustCompile(`^\d{4}$`)

func parseHoldingsTable(table *goquery.Selection) []models.RawHolding {
	var rows []models.RawHolding

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Text())
		if !stockCodeRe.MatchString(code) {
			return
		}

		rows = append(rows, models.RawHolding{
			StockCode: code,
			StockName: strings.TrimSpace(cells.Eq(1).Text()),
			Shares:    strings.TrimSpace(cells.Eq(2).Text()),
			Weight:    strings.TrimSpace(cells.Eq(3).Text()),
		})
	})

	return rows
}

// Line-oriented last resort for pages whose holdings render as formatted
// text rather than a table: code, name, shares, weight separated by
// whitespace.
var textRowRe = regexp.MustCompile(`(?m)^\s*(\d{4})\s+(\S{2,20})\s+([\d,]+)\s+([\d.]+)\s*%?\s*$`)

func (x *Extractor) fromPageText(html, ticker string) []models.RawHolding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	text := doc.Text()
	matches := textRowRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	rows := make([]models.RawHolding, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, models.RawHolding{
			StockCode: m[1],
			StockName: m[2],
			Shares:    m[3],
			Weight:    m[4],
		})
	}

	x.logger.Debug().
		Str("ticker", ticker).
		Int("rows", len(rows)).
		Msg("Holdings extracted from page text")

	return rows
}

// apiHolding tolerates the field-name variants seen across issuer APIs.
type apiHolding struct {
	Code   string      `json:"code"`
	Stock  string      `json:"stockCode"`
	Name   string      `json:"name"`
	Stock2 string      `json:"stockName"`
	Shares json.Number `json:"shares"`
	Units  json.Number `json:"units"`
	Weight json.Number `json:"weight"`
	Ratio  json.Number `json:"ratio"`
}

type apiEnvelope struct {
	Data []apiHolding `json:"data"`
	Date string       `json:"date"`
}

func (x *Extractor) fromAPIPayload(payload []byte) ([]models.RawHolding, string, error) {
	var items []apiHolding
	var date string

	// Either a bare array or a {"data": [...], "date": "..."} envelope
	if err := json.Unmarshal(payload, &items); err != nil {
		var env apiEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, "", fmt.Errorf("unrecognized API payload shape: %w", err)
		}
		items = env.Data
		date = env.Date
	}

	rows := make([]models.RawHolding, 0, len(items))
	for _, it := range items {
		code := it.Code
		if code == "" {
			code = it.Stock
		}
		name := it.Name
		if name == "" {
			name = it.Stock2
		}
		shares := it.Shares.String()
		if shares == "" {
			shares = it.Units.String()
		}
		weight := it.Weight.String()
		if weight == "" {
			weight = it.Ratio.String()
		}

		rows = append(rows, models.RawHolding{
			StockCode: code,
			StockName: name,
			Shares:    shares,
			Weight:    weight,
		})
	}

	return rows, date, nil
}
