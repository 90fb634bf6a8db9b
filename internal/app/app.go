package app

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
	"github.com/ternarybob/etfwatch/internal/interfaces"
	"github.com/ternarybob/etfwatch/internal/services/scheduler"
	"github.com/ternarybob/etfwatch/internal/services/scraper"
	badgerstorage "github.com/ternarybob/etfwatch/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	ScraperService   *scraper.Service
	SchedulerService *scheduler.Service
}

// New initializes storage and services in dependency order.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	scraperService := scraper.NewService(config, storageManager, logger)
	schedulerService := scheduler.NewService(scraperService, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		StorageManager:   storageManager,
		ScraperService:   scraperService,
		SchedulerService: schedulerService,
	}, nil
}

// Close shuts down services and storage in reverse order.
func (a *App) Close() {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}
	if a.ScraperService != nil {
		if err := a.ScraperService.Shutdown(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scraper shutdown failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
