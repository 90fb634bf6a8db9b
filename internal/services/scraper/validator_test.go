package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/models"
)

func TestNormalize(t *testing.T) {
	raw := models.RawHolding{
		StockCode: " 2330 ",
		StockName: "台積電　",
		Shares:    "333,314,781",
		Weight:    "58.75%",
	}

	h, err := Normalize(raw, "0050", "2025-09-08")
	require.NoError(t, err)

	assert.Equal(t, "2330", h.StockCode)
	assert.Equal(t, "台積電", h.StockName)
	assert.Equal(t, int64(333314781), h.Shares)
	assert.Equal(t, 58.75, h.Weight)
	assert.Equal(t, "0050", h.ETFTicker)
	assert.Equal(t, "2025-09-08", h.Date)
}

func TestNormalizeRejectsUnparseableNumbers(t *testing.T) {
	_, err := Normalize(models.RawHolding{
		StockCode: "2330", StockName: "台積電", Shares: "n/a", Weight: "58.75",
	}, "0050", "2025-09-08")
	assert.Error(t, err)

	_, err = Normalize(models.RawHolding{
		StockCode: "2330", StockName: "台積電", Shares: "100", Weight: "--",
	}, "0050", "2025-09-08")
	assert.Error(t, err)
}

func TestValidateAndCleanAcceptance(t *testing.T) {
	v := NewValidator(arbor.NewLogger())

	rows := []models.RawHolding{
		{StockCode: "2330", StockName: "台積電", Shares: "333314781", Weight: "58.75"},
		{StockCode: "233", StockName: "短碼", Shares: "100", Weight: "1.0"},           // code not 4 digits
		{StockCode: "23AB", StockName: "非數字", Shares: "100", Weight: "1.0"},        // code not numeric
		{StockCode: "2317", StockName: "鴻", Shares: "100", Weight: "1.0"},          // name too short
		{StockCode: "2454", StockName: "聯發科", Shares: "0", Weight: "1.0"},          // zero shares
		{StockCode: "2881", StockName: "富邦金", Shares: "100", Weight: "101"},        // weight over 100
		{StockCode: "2882", StockName: "國泰金", Shares: "-5", Weight: "1.0"},         // negative shares
		{StockCode: "2891", StockName: `中信金<b>`, Shares: "100", Weight: "1.0"},     // blacklisted char
		{StockCode: "2886", StockName: "12345.6", Shares: "100", Weight: "1.0"},    // numeric "name"
		{StockCode: "2884", StockName: "玉山金", Shares: "1,000", Weight: "0"},        // zero weight is valid
	}

	snapshot := v.ValidateAndClean(rows, "0050", "2025-09-08", models.MethodCSVFile, "")

	require.Len(t, snapshot.Holdings, 2)
	assert.Equal(t, 8, snapshot.RejectedCount)
	assert.Equal(t, "2330", snapshot.Holdings[0].StockCode)
	assert.Equal(t, "2884", snapshot.Holdings[1].StockCode)
}

func TestValidateAndCleanRejectsStructuralNameCharacters(t *testing.T) {
	v := NewValidator(arbor.NewLogger())

	rows := []models.RawHolding{
		{StockCode: "2330", StockName: "台積;電", Shares: "100", Weight: "1.0"},
		{StockCode: "2317", StockName: "鴻海:股", Shares: "100", Weight: "1.0"},
		{StockCode: "2454", StockName: "聯`發科", Shares: "100", Weight: "1.0"},
		{StockCode: "2881", StockName: "富~邦金", Shares: "100", Weight: "1.0"},
		{StockCode: "2882", StockName: "國(泰)金", Shares: "100", Weight: "1.0"},
		{StockCode: "2891", StockName: "中/信金", Shares: "100", Weight: "1.0"},
	}

	snapshot := v.ValidateAndClean(rows, "0050", "2025-09-08", models.MethodCSVFile, "")

	assert.Empty(t, snapshot.Holdings)
	assert.Equal(t, len(rows), snapshot.RejectedCount)
}

func TestValidateAndCleanRejectsNonDigitCodes(t *testing.T) {
	v := NewValidator(arbor.NewLogger())

	// "12.3" and "-123" satisfy a generic numeric check but are not
	// four decimal digits
	rows := []models.RawHolding{
		{StockCode: "12.3", StockName: "台積電", Shares: "100", Weight: "1.0"},
		{StockCode: "-123", StockName: "鴻海精密", Shares: "100", Weight: "1.0"},
		{StockCode: "+123", StockName: "聯發科", Shares: "100", Weight: "1.0"},
		{StockCode: "2330", StockName: "台積電", Shares: "100", Weight: "1.0"},
	}

	snapshot := v.ValidateAndClean(rows, "0050", "2025-09-08", models.MethodCSVFile, "")

	require.Len(t, snapshot.Holdings, 1)
	assert.Equal(t, "2330", snapshot.Holdings[0].StockCode)
	assert.Equal(t, 3, snapshot.RejectedCount)
}

func TestValidateAndCleanDedupeFirstWins(t *testing.T) {
	v := NewValidator(arbor.NewLogger())

	rows := []models.RawHolding{
		{StockCode: "2330", StockName: "台積電", Shares: "100", Weight: "10.0"},
		{StockCode: "2330", StockName: "台積電", Shares: "999", Weight: "99.0"},
		{StockCode: "2317", StockName: "鴻海", Shares: "200", Weight: "5.0"},
	}

	snapshot := v.ValidateAndClean(rows, "0050", "2025-09-08", models.MethodHTMLTable, "")

	require.Len(t, snapshot.Holdings, 2)
	assert.Equal(t, 1, snapshot.RejectedCount)

	// First occurrence of 2330 is kept
	var tsmc *models.Holding
	for i := range snapshot.Holdings {
		if snapshot.Holdings[i].StockCode == "2330" {
			tsmc = &snapshot.Holdings[i]
		}
	}
	require.NotNil(t, tsmc)
	assert.Equal(t, int64(100), tsmc.Shares)
	assert.Equal(t, 10.0, tsmc.Weight)
}

func TestValidateAndCleanSortsByWeightDesc(t *testing.T) {
	v := NewValidator(arbor.NewLogger())

	rows := []models.RawHolding{
		{StockCode: "2317", StockName: "鴻海", Shares: "166547825", Weight: "5.1"},
		{StockCode: "2330", StockName: "台積電", Shares: "333314781", Weight: "58.75"},
		{StockCode: "2454", StockName: "聯發科", Shares: "24089192", Weight: "4.37"},
	}

	snapshot := v.ValidateAndClean(rows, "0050", "2025-09-08", models.MethodCSVFile, "")

	require.Len(t, snapshot.Holdings, 3)
	assert.Equal(t, "2330", snapshot.Holdings[0].StockCode)
	assert.Equal(t, "2317", snapshot.Holdings[1].StockCode)
	assert.Equal(t, "2454", snapshot.Holdings[2].StockCode)
}
