package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	etf        interfaces.ETFStorage
	holding    interfaces.HoldingStorage
	scraperLog interfaces.ScraperLogStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		etf:        NewETFStorage(db, logger),
		holding:    NewHoldingStorage(db, logger),
		scraperLog: NewScraperLogStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ETFStorage returns the ETF storage interface
func (m *Manager) ETFStorage() interfaces.ETFStorage {
	return m.etf
}

// HoldingStorage returns the Holding storage interface
func (m *Manager) HoldingStorage() interfaces.HoldingStorage {
	return m.holding
}

// ScraperLogStorage returns the ScraperLog storage interface
func (m *Manager) ScraperLogStorage() interfaces.ScraperLogStorage {
	return m.scraperLog
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
