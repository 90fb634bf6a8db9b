package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/models"
)

func newTestExtractor() *Extractor {
	cfg := common.NewDefaultConfig()
	return NewExtractor(&cfg.Scraper, arbor.NewLogger())
}

const holdingsTableHTML = `
<html><body>
<h1>基金持股明細</h1>
<table class="holdings-table">
  <tr><th>代碼</th><th>名稱</th><th>股數</th><th>權重</th></tr>
  <tr><td>2330</td><td>台積電</td><td>333,314,781</td><td>58.75%</td></tr>
  <tr><td>2317</td><td>鴻海</td><td>166,547,825</td><td>5.1%</td></tr>
</table>
</body></html>`

func TestExtractFromHTMLTable(t *testing.T) {
	x := newTestExtractor()

	out, err := x.Extract(&ExtractInput{
		Ticker:       "0050",
		PageHTML:     holdingsTableHTML,
		TableSelects: []string{"table.holdings-table", "table"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.MethodHTMLTable, out.Method)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "2330", out.Rows[0].StockCode)
	assert.Equal(t, "台積電", out.Rows[0].StockName)
	assert.Equal(t, "58.75%", out.Rows[0].Weight)
}

func TestExtractFromHTMLTableFallbackSelector(t *testing.T) {
	x := newTestExtractor()

	// First selector matches nothing; the generic "table" selector must pick
	// the holdings up
	out, err := x.Extract(&ExtractInput{
		Ticker:       "0050",
		PageHTML:     holdingsTableHTML,
		TableSelects: []string{"table.does-not-exist", "table"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MethodHTMLTable, out.Method)
	assert.Len(t, out.Rows, 2)
}

func TestExtractFromPageText(t *testing.T) {
	x := newTestExtractor()

	html := `<html><body><pre>
2330 台積電 333,314,781 58.75%
2317 鴻海 166,547,825 5.1
</pre></body></html>`

	out, err := x.Extract(&ExtractInput{
		Ticker:   "0050",
		PageHTML: html,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MethodTextRegex, out.Method)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "2330", out.Rows[0].StockCode)
	assert.Equal(t, "333,314,781", out.Rows[0].Shares)
}

func TestExtractFromAPIPayload(t *testing.T) {
	x := newTestExtractor()

	t.Run("bare array", func(t *testing.T) {
		payload := []byte(`[
			{"code":"2330","name":"台積電","shares":333314781,"weight":58.75},
			{"code":"2317","name":"鴻海","shares":166547825,"weight":5.1}
		]`)

		out, err := x.Extract(&ExtractInput{Ticker: "0050", APIPayload: payload})
		require.NoError(t, err)
		assert.Equal(t, models.MethodAPI, out.Method)
		require.Len(t, out.Rows, 2)
		assert.Equal(t, "58.75", out.Rows[0].Weight)
	})

	t.Run("data envelope with variant field names", func(t *testing.T) {
		payload := []byte(`{"date":"2025-09-08","data":[
			{"stockCode":"2330","stockName":"台積電","units":333314781,"ratio":58.75}
		]}`)

		out, err := x.Extract(&ExtractInput{Ticker: "0050", APIPayload: payload})
		require.NoError(t, err)
		assert.Equal(t, "2025-09-08", out.Date)
		require.Len(t, out.Rows, 1)
		assert.Equal(t, "2330", out.Rows[0].StockCode)
		assert.Equal(t, "333314781", out.Rows[0].Shares)
		assert.Equal(t, "58.75", out.Rows[0].Weight)
	})
}

func TestExtractFilePreferredOverHTML(t *testing.T) {
	x := newTestExtractor()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(buildExport(2, "2025-09-08")), 0644))

	out, err := x.Extract(&ExtractInput{
		Ticker:       "0050",
		FilePath:     path,
		PageHTML:     holdingsTableHTML,
		TableSelects: []string{"table"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.MethodCSVFile, out.Method)
	assert.Equal(t, "2025-09-08", out.Date)
	assert.Equal(t, path, out.SourceFile)
}

func TestExtractCorruptFileFallsThroughToHTML(t *testing.T) {
	x := newTestExtractor()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,a,holdings,file\n"), 0644))

	out, err := x.Extract(&ExtractInput{
		Ticker:       "0050",
		FilePath:     path,
		PageHTML:     holdingsTableHTML,
		TableSelects: []string{"table"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MethodHTMLTable, out.Method)
	assert.Len(t, out.Rows, 2)
}

func TestExtractNothingYieldsEmptyNotError(t *testing.T) {
	x := newTestExtractor()

	out, err := x.Extract(&ExtractInput{
		Ticker:   "0050",
		PageHTML: "<html><body><p>維護中</p></body></html>",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
	assert.Empty(t, out.Method)
}
