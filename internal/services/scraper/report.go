package scraper

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ternarybob/etfwatch/internal/models"
)

// RenderReport formats a batch report as a status table for the console
// and the scheduler log.
func RenderReport(report *models.BatchReport) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Issuer", "Ticker", "Status", "Holdings", "Method", "Attempts", "Duration", "Error"})

	for _, res := range report.Results {
		errText := res.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		t.AppendRow(table.Row{
			res.Issuer,
			res.Ticker,
			res.Status,
			res.Holdings,
			res.Method,
			res.Attempts,
			res.Duration.Round(time.Millisecond),
			errText,
		})
	}

	t.AppendFooter(table.Row{
		"", "",
		fmt.Sprintf("%d ok / %d failed", report.Succeeded(), report.Failed()),
		"", "",
		fmt.Sprintf("%d retries", report.Retries()),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		"",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Holdings", Align: text.AlignRight},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	return t.Render()
}
