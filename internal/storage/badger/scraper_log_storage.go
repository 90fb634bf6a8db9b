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

// ScraperLogStorage implements the ScraperLogStorage interface for Badger.
// Logs are append-only; there is no update or delete path.
type ScraperLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScraperLogStorage creates a new ScraperLogStorage instance
func NewScraperLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScraperLogStorage {
	return &ScraperLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ScraperLogStorage) AppendLog(ctx context.Context, log *models.ScraperLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append scraper log: %w", err)
	}
	return nil
}

func (s *ScraperLogStorage) GetLogsByIssuer(ctx context.Context, issuer string, limit int) ([]*models.ScraperLog, error) {
	var logs []models.ScraperLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("Issuer").Eq(issuer).Index("Issuer")); err != nil {
		return nil, fmt.Errorf("failed to get scraper logs for %s: %w", issuer, err)
	}
	return sortAndLimitLogs(logs, limit), nil
}

func (s *ScraperLogStorage) GetRecentLogs(ctx context.Context, limit int) ([]*models.ScraperLog, error) {
	var logs []models.ScraperLog
	if err := s.db.Store().Find(&logs, nil); err != nil {
		return nil, fmt.Errorf("failed to get scraper logs: %w", err)
	}
	return sortAndLimitLogs(logs, limit), nil
}

func (s *ScraperLogStorage) CountLogs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ScraperLog{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count scraper logs: %w", err)
	}
	return int(count), nil
}

func sortAndLimitLogs(logs []models.ScraperLog, limit int) []*models.ScraperLog {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	result := make([]*models.ScraperLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result
}
