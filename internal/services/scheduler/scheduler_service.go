package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/models"
	"github.com/ternarybob/etfwatch/internal/services/scraper"
)

// Service wraps a cron scheduler around batch scrape runs. Only one batch
// runs at a time; a tick that fires while the previous batch is still
// going is skipped rather than queued.
type Service struct {
	scraperService *scraper.Service
	cron           *cron.Cron
	logger         arbor.ILogger
	mu             sync.Mutex
	running        bool
	isProcessing   bool
	lastRun        *time.Time
	lastReport     *models.BatchReport
}

// NewService creates a scheduler around the given scraper service.
func NewService(scraperService *scraper.Service, logger arbor.ILogger) *Service {
	return &Service{
		scraperService: scraperService,
		cron:           cron.New(),
		logger:         logger,
	}
}

// Start begins scheduled runs with the given cron expression.
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if cronExpr == "" {
		cronExpr = "0 9 * * *" // Default: daily at 09:00
	}

	_, err := s.cron.AddFunc(cronExpr, s.runScheduledBatch)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}
	s.logger.Info().
		Str("cron_expr", cronExpr).
		Str("next_run", nextRun).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler. A batch in flight finishes; Stop waits for it.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Minute):
		s.logger.Warn().Msg("Timed out waiting for running batch to finish")
	}

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// runScheduledBatch is the cron entrypoint.
func (s *Service) runScheduledBatch() {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous batch still running, skipping this tick")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	s.logger.Info().Msg("Scheduled batch starting")

	report := s.scraperService.ScrapeAll(context.Background())

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.lastReport = report
	s.mu.Unlock()

	s.logger.Info().
		Int("tickers", len(report.Results)).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Msg("Scheduled batch finished")

	fmt.Println(scraper.RenderReport(report))
}

// Status returns the last run time and report, if any.
func (s *Service) Status() (*time.Time, *models.BatchReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastReport, s.isProcessing
}
