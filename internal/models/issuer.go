package models

// Fetch strategies. API issuers expose a JSON holdings endpoint and bypass
// the browser entirely; rendered issuers require loading the product page and
// triggering an export download.
const (
	StrategyAPI      = "api"
	StrategyRendered = "rendered"
)

// ETFRef is one fund in an issuer's product list.
type ETFRef struct {
	Ticker string `toml:"ticker" json:"ticker"`
	Name   string `toml:"name" json:"name"`
}

// IssuerProfile describes how to scrape one fund-management company's site.
// One shared pipeline is parameterized by these profiles instead of one
// scraper implementation per issuer.
type IssuerProfile struct {
	Key      string `toml:"key" json:"key"`   // short identifier, e.g. "yuanta"
	Name     string `toml:"name" json:"name"` // display name, e.g. "元大投信"
	Strategy string `toml:"strategy" json:"strategy"`

	BaseURL     string `toml:"base_url" json:"base_url"`
	ProductURL  string `toml:"product_url" json:"product_url"`   // template with %s for ticker
	HoldingsAPI string `toml:"holdings_api" json:"holdings_api"` // template with %s for ticker, optional

	// ExportSelectors are tried in order to locate the export affordance on a
	// rendered page. Plain entries are CSS selectors; entries starting with
	// "text:" match by visible label text.
	ExportSelectors []string `toml:"export_selectors" json:"export_selectors"`

	// TableSelectors are tried in order when extracting holdings from markup.
	TableSelectors []string `toml:"table_selectors" json:"table_selectors"`

	Tickers []ETFRef `toml:"tickers" json:"tickers"`
}

// HasHoldingsAPI reports whether this issuer exposes a holdings-by-ticker
// endpoint usable as an extraction fallback.
func (p *IssuerProfile) HasHoldingsAPI() bool {
	return p.HoldingsAPI != ""
}
