package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/etfwatch/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string                 `toml:"environment"` // "development" or "production"
	Storage     StorageConfig          `toml:"storage"`
	Logging     LoggingConfig          `toml:"logging"`
	Scraper     ScraperConfig          `toml:"scraper"`
	Scheduler   SchedulerConfig        `toml:"scheduler"`
	Issuers     []models.IssuerProfile `toml:"issuers"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScraperConfig contains pipeline behavior settings shared by all issuers.
// Durations are strings parsed on access so they can be written naturally in
// TOML ("30s", "2s").
type ScraperConfig struct {
	DownloadDir          string `toml:"download_dir"`           // Root download directory; per-issuer subdirs created beneath
	UserAgent            string `toml:"user_agent"`             // Browser and HTTP user agent
	Headless             bool   `toml:"headless"`               // Run Chrome headless (required for scheduled runs)
	PageLoadTimeout      string `toml:"page_load_timeout"`      // Budget for product page navigation
	ElementWaitTimeout   string `toml:"element_wait_timeout"`   // Budget for locating the export affordance
	DownloadPollInterval string `toml:"download_poll_interval"` // Interval between download-dir checks
	DownloadTimeout      string `toml:"download_timeout"`       // Total budget waiting for the exported file
	RequestTimeout       string `toml:"request_timeout"`        // HTTP request timeout for API strategies
	MaxAttempts          int    `toml:"max_attempts"`           // Per-ticker retry bound
	RetryDelay           string `toml:"retry_delay"`            // Base delay between attempts (linear backoff)
	RequestDelay         string `toml:"request_delay"`          // Mandatory delay between tickers in a batch
	RandomDelay          string `toml:"random_delay"`           // Jitter added to the inter-ticker delay
	CSVSkipRows          int    `toml:"csv_skip_rows"`          // Leading metadata rows before the holdings header
}

// SchedulerConfig controls the cron wrapper around batch runs.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron expression, default daily 09:00
}

// Duration accessors. Invalid or empty strings fall back to the default
// rather than failing the run.

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func (c *ScraperConfig) PageLoadTimeoutD() time.Duration {
	return parseDuration(c.PageLoadTimeout, 30*time.Second)
}

func (c *ScraperConfig) ElementWaitTimeoutD() time.Duration {
	return parseDuration(c.ElementWaitTimeout, 10*time.Second)
}

func (c *ScraperConfig) DownloadPollIntervalD() time.Duration {
	return parseDuration(c.DownloadPollInterval, time.Second)
}

func (c *ScraperConfig) DownloadTimeoutD() time.Duration {
	return parseDuration(c.DownloadTimeout, 30*time.Second)
}

func (c *ScraperConfig) RequestTimeoutD() time.Duration {
	return parseDuration(c.RequestTimeout, 30*time.Second)
}

func (c *ScraperConfig) RetryDelayD() time.Duration {
	return parseDuration(c.RetryDelay, 5*time.Second)
}

func (c *ScraperConfig) RequestDelayD() time.Duration {
	return parseDuration(c.RequestDelay, 2*time.Second)
}

func (c *ScraperConfig) RandomDelayD() time.Duration {
	return parseDuration(c.RandomDelay, time.Second)
}

// IssuerByKey returns the issuer profile with the given key, or nil.
func (c *Config) IssuerByKey(key string) *models.IssuerProfile {
	for i := range c.Issuers {
		if c.Issuers[i].Key == key {
			return &c.Issuers[i]
		}
	}
	return nil
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ETFWATCH_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if badgerPath := os.Getenv("ETFWATCH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("ETFWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dir := os.Getenv("ETFWATCH_DOWNLOAD_DIR"); dir != "" {
		config.Scraper.DownloadDir = dir
	}

	if attempts := os.Getenv("ETFWATCH_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil && a > 0 {
			config.Scraper.MaxAttempts = a
		}
	}

	if schedule := os.Getenv("ETFWATCH_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}
