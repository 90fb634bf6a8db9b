package common

import "github.com/ternarybob/etfwatch/internal/models"

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in etfwatch.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Scraper: ScraperConfig{
			DownloadDir:          "./downloads",
			UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:             true,
			PageLoadTimeout:      "30s",
			ElementWaitTimeout:   "10s",
			DownloadPollInterval: "1s",
			DownloadTimeout:      "30s",
			RequestTimeout:       "30s",
			MaxAttempts:          3,
			RetryDelay:           "5s",
			RequestDelay:         "2s",
			RandomDelay:          "1s",
			CSVSkipRows:          17,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 9 * * *", // daily 09:00
		},
		Issuers: DefaultIssuers(),
	}
}

// DefaultIssuers returns the built-in issuer profiles. Site-specific URLs and
// selectors live here so a config file only needs to override what changed.
func DefaultIssuers() []models.IssuerProfile {
	return []models.IssuerProfile{
		{
			Key:         "yuanta",
			Name:        "元大投信",
			Strategy:    models.StrategyRendered,
			BaseURL:     "https://www.yuantaetfs.com",
			ProductURL:  "https://www.yuantaetfs.com/product/detail/%s/ratio",
			HoldingsAPI: "https://www.yuantaetfs.com/api/Etf/GetEtfHolding?etfCode=%s",
			ExportSelectors: []string{
				"div.excelBtn.view",
				"text:匯出excel",
				"text:匯出Excel",
				"text:Export Excel",
			},
			TableSelectors: []string{"table.holdings-table", "table"},
			Tickers: []models.ETFRef{
				{Ticker: "0050", Name: "元大台灣卓越50基金"},
				{Ticker: "0051", Name: "元大台灣中型100基金"},
				{Ticker: "0053", Name: "元大台灣ETF傘型基金之電子科技基金"},
				{Ticker: "0055", Name: "元大台灣金融基金"},
				{Ticker: "0056", Name: "元大台灣高股息基金"},
				{Ticker: "006201", Name: "元大富櫃50基金"},
				{Ticker: "006203", Name: "元大摩臺基金"},
				{Ticker: "00713", Name: "元大台灣高息低波ETF"},
				{Ticker: "00850", Name: "元大臺灣ESG永續ETF"},
				{Ticker: "00940", Name: "元大臺灣價值高息ETF"},
			},
		},
		{
			Key:         "cathay",
			Name:        "國泰投信",
			Strategy:    models.StrategyAPI,
			BaseURL:     "https://www.cathaysite.com.tw",
			ProductURL:  "https://www.cathaysite.com.tw/etf/detail/%s/holdings",
			HoldingsAPI: "https://www.cathaysite.com.tw/api/etf/%s/holdings",
			TableSelectors: []string{
				"table.holdings-table",
				"table.portfolio-table",
				"table",
			},
		},
		{
			Key:         "ctbc",
			Name:        "中信投信",
			Strategy:    models.StrategyAPI,
			BaseURL:     "https://www.ctbcinvestments.com",
			ProductURL:  "https://www.ctbcinvestments.com/etf/%s/holdings",
			HoldingsAPI: "https://www.ctbcinvestments.com/api/etf/%s/holdings",
			TableSelectors: []string{
				"table.holdings-table",
				"table.portfolio-table",
				"table",
			},
		},
		{
			Key:         "capital",
			Name:        "群益投信",
			Strategy:    models.StrategyAPI,
			BaseURL:     "https://www.capitalfund.com.tw",
			ProductURL:  "https://www.capitalfund.com.tw/etf/%s/holdings",
			HoldingsAPI: "https://www.capitalfund.com.tw/api/etf/%s/holdings",
			TableSelectors: []string{
				"table.holdings-table",
				"table.portfolio-table",
				"table",
			},
		},
		{
			Key:         "fubon",
			Name:        "富邦投信",
			Strategy:    models.StrategyAPI,
			BaseURL:     "https://www.fubon.com",
			ProductURL:  "https://www.fubon.com/etf/%s/holdings",
			HoldingsAPI: "https://www.fubon.com/api/etf/%s/holdings",
			TableSelectors: []string{
				"table.holdings-table",
				"table.portfolio-table",
				"table",
			},
		},
		{
			Key:         "fhtrust",
			Name:        "復華投信",
			Strategy:    models.StrategyAPI,
			BaseURL:     "https://www.fhtrust.com.tw",
			ProductURL:  "https://www.fhtrust.com.tw/etf/%s/holdings",
			HoldingsAPI: "https://www.fhtrust.com.tw/api/etf/%s/holdings",
			TableSelectors: []string{
				"table.holdings-table",
				"table.portfolio-table",
				"table",
			},
		},
	}
}
