package interfaces

import (
	"context"

	"github.com/ternarybob/etfwatch/internal/models"
)

// ETFStorage - interface for ETF metadata persistence
type ETFStorage interface {
	SaveETF(ctx context.Context, etf *models.ETF) error
	GetETF(ctx context.Context, ticker string) (*models.ETF, error)
	GetETFsByIssuer(ctx context.Context, issuer string) ([]*models.ETF, error)
	ListETFs(ctx context.Context) ([]*models.ETF, error)
	DeleteETF(ctx context.Context, ticker string) error
	CountETFs(ctx context.Context) (int, error)
}

// HoldingStorage - interface for holdings document persistence.
// Holdings are grouped by (etf_ticker, date); ReplaceHoldings is the only
// write path batch runs use, keeping re-runs idempotent.
type HoldingStorage interface {
	// Write operations
	InsertHoldings(ctx context.Context, holdings []*models.Holding) (int, error)
	DeleteHoldings(ctx context.Context, etfTicker, date string) (int, error)
	ReplaceHoldings(ctx context.Context, etfTicker, date string, holdings []*models.Holding) (int, error)

	// Read operations
	GetHoldings(ctx context.Context, etfTicker, date string) ([]*models.Holding, error)
	GetHoldingsHistory(ctx context.Context, etfTicker string, limit int) ([]*models.Holding, error)
	GetHoldingDates(ctx context.Context, etfTicker string) ([]string, error)
	LatestDate(ctx context.Context, etfTicker string) (string, error)

	// Stats operations
	CountHoldings(ctx context.Context, etfTicker, date string) (int, error)
	CountAllHoldings(ctx context.Context) (int, error)

	// Bulk operations
	ClearAll(ctx context.Context) error
}

// ScraperLogStorage - append-only audit trail for scrape runs
type ScraperLogStorage interface {
	AppendLog(ctx context.Context, log *models.ScraperLog) error
	GetLogsByIssuer(ctx context.Context, issuer string, limit int) ([]*models.ScraperLog, error)
	GetRecentLogs(ctx context.Context, limit int) ([]*models.ScraperLog, error)
	CountLogs(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	ETFStorage() ETFStorage
	HoldingStorage() HoldingStorage
	ScraperLogStorage() ScraperLogStorage
	DB() interface{}
	Close() error
}
