package scraper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/etfwatch/internal/common"
)

// Browser manages a shared Chrome allocator and hands out isolated tab
// sessions. Each scrape attempt gets its own session so a crashed or
// wedged page cannot poison the next attempt.
type Browser struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	mu              sync.Mutex
	config          *common.ScraperConfig
	logger          arbor.ILogger
	initialized     bool
}

// NewBrowser creates a browser manager. Chrome is not launched until Init.
func NewBrowser(config *common.ScraperConfig, logger arbor.ILogger) *Browser {
	return &Browser{
		config: config,
		logger: logger,
	}
}

// Init launches the Chrome allocator and verifies it can serve a page.
func (b *Browser) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return fmt.Errorf("browser already initialized")
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		context.Background(),
		allocatorOpts...,
	)

	// Startup test: launch a tab and load a blank page
	testCtx, testCancel := chromedp.NewContext(allocatorCtx)
	runCtx, runCancel := context.WithTimeout(testCtx, 30*time.Second)
	err := chromedp.Run(runCtx, chromedp.Navigate("about:blank"))
	runCancel()
	testCancel()
	if err != nil {
		allocatorCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	b.allocatorCtx = allocatorCtx
	b.allocatorCancel = allocatorCancel
	b.initialized = true

	b.logger.Info().
		Bool("headless", b.config.Headless).
		Str("user_agent", b.config.UserAgent).
		Msg("Browser allocator initialized")

	return nil
}

// Session is a single browser tab with its own download directory.
type Session struct {
	Ctx         context.Context
	DownloadDir string
	cancel      context.CancelFunc
	logger      arbor.ILogger
}

// AcquireSession creates a fresh tab steered to download into downloadDir.
// The caller must call Release exactly once, on every path.
func (b *Browser) AcquireSession(downloadDir string) (*Session, error) {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return nil, fmt.Errorf("browser not initialized")
	}
	allocatorCtx := b.allocatorCtx
	b.mu.Unlock()

	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory %s: %w", downloadDir, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocatorCtx)

	// Route downloads to the session directory instead of the Chrome default
	err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to set download behavior: %w", err)
	}

	b.logger.Debug().
		Str("download_dir", downloadDir).
		Msg("Browser session acquired")

	return &Session{
		Ctx:         tabCtx,
		DownloadDir: downloadDir,
		cancel:      tabCancel,
		logger:      b.logger,
	}, nil
}

// Release closes the session's tab. Safe to call once per session.
func (s *Session) Release() {
	if s.cancel != nil {
		s.cancel()
		s.logger.Debug().Str("download_dir", s.DownloadDir).Msg("Browser session released")
	}
}

// Shutdown stops the Chrome allocator.
func (b *Browser) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.allocatorCancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		b.logger.Warn().Msg("Browser shutdown timed out")
	}

	b.initialized = false
	b.allocatorCtx = nil
	b.allocatorCancel = nil

	b.logger.Info().Msg("Browser allocator shut down")
	return nil
}
