package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ETFStorage implements the ETFStorage interface for Badger
type ETFStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewETFStorage creates a new ETFStorage instance
func NewETFStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ETFStorage {
	return &ETFStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ETFStorage) SaveETF(ctx context.Context, etf *models.ETF) error {
	if etf.Ticker == "" {
		return fmt.Errorf("etf ticker is required")
	}

	now := time.Now()
	// Preserve CreatedAt across upserts of the same ticker
	var existing models.ETF
	if err := s.db.Store().Get(etf.Ticker, &existing); err == nil {
		etf.CreatedAt = existing.CreatedAt
	} else if etf.CreatedAt.IsZero() {
		etf.CreatedAt = now
	}
	etf.UpdatedAt = now

	if err := s.db.Store().Upsert(etf.Ticker, etf); err != nil {
		return fmt.Errorf("failed to save etf %s: %w", etf.Ticker, err)
	}
	return nil
}

func (s *ETFStorage) GetETF(ctx context.Context, ticker string) (*models.ETF, error) {
	var etf models.ETF
	if err := s.db.Store().Get(ticker, &etf); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("etf not found: %s", ticker)
		}
		return nil, fmt.Errorf("failed to get etf %s: %w", ticker, err)
	}
	return &etf, nil
}

func (s *ETFStorage) GetETFsByIssuer(ctx context.Context, issuer string) ([]*models.ETF, error) {
	var etfs []models.ETF
	if err := s.db.Store().Find(&etfs, badgerhold.Where("Issuer").Eq(issuer).Index("Issuer")); err != nil {
		return nil, fmt.Errorf("failed to get etfs by issuer %s: %w", issuer, err)
	}

	result := make([]*models.ETF, len(etfs))
	for i := range etfs {
		result[i] = &etfs[i]
	}
	return result, nil
}

func (s *ETFStorage) ListETFs(ctx context.Context) ([]*models.ETF, error) {
	var etfs []models.ETF
	if err := s.db.Store().Find(&etfs, nil); err != nil {
		return nil, fmt.Errorf("failed to list etfs: %w", err)
	}

	result := make([]*models.ETF, len(etfs))
	for i := range etfs {
		result[i] = &etfs[i]
	}
	return result, nil
}

func (s *ETFStorage) DeleteETF(ctx context.Context, ticker string) error {
	if err := s.db.Store().Delete(ticker, &models.ETF{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete etf %s: %w", ticker, err)
	}
	return nil
}

func (s *ETFStorage) CountETFs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ETF{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count etfs: %w", err)
	}
	return int(count), nil
}
