package scraper

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/ternarybob/etfwatch/internal/models"
)

// Export files carry a metadata preamble before the holdings header and a
// futures section after the stock rows. Only the stock section is parsed.
var (
	holdingsHeader = []string{"商品代碼", "商品名稱", "商品數量", "商品權重"}

	// Matches 2025-09-08, 2025/09/08 and 2025.09.08 in the preamble
	dateRe = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)
)

const futuresMarker = "期貨"

// decodeExport normalizes the raw file bytes to UTF-8. Issuer exports are
// UTF-8 with BOM most of the time but older files come down as Big5.
func decodeExport(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return data, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), traditionalchinese.Big5.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode export as Big5: %w", err)
	}
	return decoded, nil
}

// ParseExportCSV parses an issuer export file into raw holdings and the
// snapshot date found in the preamble. skipRows bounds the preamble scan;
// the actual header row is located by content so a shifted preamble does
// not break parsing.
func ParseExportCSV(data []byte, skipRows int) ([]models.RawHolding, string, error) {
	decoded, err := decodeExport(data)
	if err != nil {
		return nil, "", err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		date     string
		rows     []models.RawHolding
		inTable  bool
		rowIndex int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read export row %d: %w", rowIndex+1, err)
		}
		rowIndex++

		if !inTable {
			line := strings.Join(record, ",")
			if date == "" {
				if m := dateRe.FindStringSubmatch(line); m != nil {
					date = fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
				}
			}
			if isHoldingsHeader(record) {
				inTable = true
				continue
			}
			// Header must appear within the preamble budget plus slack
			if skipRows > 0 && rowIndex > skipRows+10 {
				return nil, "", fmt.Errorf("holdings header not found within first %d rows", rowIndex)
			}
			continue
		}

		if len(record) == 0 {
			continue
		}
		first := strings.TrimSpace(record[0])
		if first == "" {
			continue
		}
		// The futures section follows the stock section; stop there
		if strings.HasPrefix(first, futuresMarker) {
			break
		}
		if len(record) < 4 {
			continue
		}

		rows = append(rows, models.RawHolding{
			StockCode: strings.TrimSpace(record[0]),
			StockName: strings.TrimSpace(record[1]),
			Shares:    strings.TrimSpace(record[2]),
			Weight:    strings.TrimSpace(record[3]),
		})
	}

	if !inTable {
		return nil, "", fmt.Errorf("holdings header not found in export file")
	}

	return rows, date, nil
}

func isHoldingsHeader(record []string) bool {
	if len(record) < len(holdingsHeader) {
		return false
	}
	for i, want := range holdingsHeader {
		if !strings.Contains(strings.TrimSpace(record[i]), want) {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
