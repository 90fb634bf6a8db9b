package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// HoldingStorage implements the HoldingStorage interface for Badger.
// Each holding is its own record keyed by a generated ID; the
// (ETFTicker, Date) pair identifies the snapshot group.
type HoldingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHoldingStorage creates a new HoldingStorage instance
func NewHoldingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HoldingStorage {
	return &HoldingStorage{
		db:     db,
		logger: logger,
	}
}

func (s *HoldingStorage) InsertHoldings(ctx context.Context, holdings []*models.Holding) (int, error) {
	now := time.Now()
	inserted := 0

	for _, h := range holdings {
		if h.ETFTicker == "" || h.Date == "" {
			return inserted, fmt.Errorf("holding requires etf_ticker and date (got %q/%q)", h.ETFTicker, h.Date)
		}
		if h.ID == "" {
			h.ID = uuid.New().String()
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = now
		}
		h.UpdatedAt = now

		if err := s.db.Store().Insert(h.ID, h); err != nil {
			return inserted, fmt.Errorf("failed to insert holding %s/%s %s: %w", h.ETFTicker, h.Date, h.StockCode, err)
		}
		inserted++
	}

	return inserted, nil
}

func (s *HoldingStorage) DeleteHoldings(ctx context.Context, etfTicker, date string) (int, error) {
	existing, err := s.GetHoldings(ctx, etfTicker, date)
	if err != nil {
		return 0, err
	}
	if len(existing) == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.Holding{},
		badgerhold.Where("ETFTicker").Eq(etfTicker).Index("ETFTicker").And("Date").Eq(date)); err != nil {
		return 0, fmt.Errorf("failed to delete holdings %s/%s: %w", etfTicker, date, err)
	}

	return len(existing), nil
}

// ReplaceHoldings deletes the existing (etfTicker, date) group and inserts the
// new records. Running the same snapshot twice leaves one copy in the store.
func (s *HoldingStorage) ReplaceHoldings(ctx context.Context, etfTicker, date string, holdings []*models.Holding) (int, error) {
	deleted, err := s.DeleteHoldings(ctx, etfTicker, date)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Debug().
			Str("etf_ticker", etfTicker).
			Str("date", date).
			Int("deleted", deleted).
			Msg("Replaced existing holdings group")
	}

	return s.InsertHoldings(ctx, holdings)
}

func (s *HoldingStorage) GetHoldings(ctx context.Context, etfTicker, date string) ([]*models.Holding, error) {
	var holdings []models.Holding
	err := s.db.Store().Find(&holdings,
		badgerhold.Where("ETFTicker").Eq(etfTicker).Index("ETFTicker").And("Date").Eq(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings %s/%s: %w", etfTicker, date, err)
	}

	// Weight descending, code ascending as tiebreak
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Weight != holdings[j].Weight {
			return holdings[i].Weight > holdings[j].Weight
		}
		return holdings[i].StockCode < holdings[j].StockCode
	})

	result := make([]*models.Holding, len(holdings))
	for i := range holdings {
		result[i] = &holdings[i]
	}
	return result, nil
}

func (s *HoldingStorage) GetHoldingsHistory(ctx context.Context, etfTicker string, limit int) ([]*models.Holding, error) {
	var holdings []models.Holding
	query := badgerhold.Where("ETFTicker").Eq(etfTicker).Index("ETFTicker")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&holdings, query); err != nil {
		return nil, fmt.Errorf("failed to get holdings history for %s: %w", etfTicker, err)
	}

	result := make([]*models.Holding, len(holdings))
	for i := range holdings {
		result[i] = &holdings[i]
	}
	return result, nil
}

func (s *HoldingStorage) GetHoldingDates(ctx context.Context, etfTicker string) ([]string, error) {
	var holdings []models.Holding
	if err := s.db.Store().Find(&holdings, badgerhold.Where("ETFTicker").Eq(etfTicker).Index("ETFTicker")); err != nil {
		return nil, fmt.Errorf("failed to get holding dates for %s: %w", etfTicker, err)
	}

	seen := make(map[string]bool)
	dates := make([]string, 0)
	for i := range holdings {
		if !seen[holdings[i].Date] {
			seen[holdings[i].Date] = true
			dates = append(dates, holdings[i].Date)
		}
	}

	// Newest first; dates are YYYY-MM-DD so string order is date order
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *HoldingStorage) LatestDate(ctx context.Context, etfTicker string) (string, error) {
	dates, err := s.GetHoldingDates(ctx, etfTicker)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return "", nil
	}
	return dates[0], nil
}

func (s *HoldingStorage) CountHoldings(ctx context.Context, etfTicker, date string) (int, error) {
	count, err := s.db.Store().Count(&models.Holding{},
		badgerhold.Where("ETFTicker").Eq(etfTicker).Index("ETFTicker").And("Date").Eq(date))
	if err != nil {
		return 0, fmt.Errorf("failed to count holdings %s/%s: %w", etfTicker, date, err)
	}
	return int(count), nil
}

func (s *HoldingStorage) CountAllHoldings(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Holding{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return int(count), nil
}

func (s *HoldingStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Holding{}, nil); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	return nil
}
