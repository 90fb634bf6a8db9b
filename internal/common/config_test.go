package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "./data", cfg.Storage.Badger.Path)
	assert.Equal(t, 3, cfg.Scraper.MaxAttempts)
	assert.Equal(t, 17, cfg.Scraper.CSVSkipRows)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.Schedule)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Len(t, cfg.Issuers, 6)

	yuanta := cfg.IssuerByKey("yuanta")
	require.NotNil(t, yuanta)
	assert.Equal(t, "rendered", yuanta.Strategy)
	assert.NotEmpty(t, yuanta.ExportSelectors)
	assert.Len(t, yuanta.Tickers, 10)
}

func TestDurationAccessors(t *testing.T) {
	sc := ScraperConfig{
		DownloadTimeout: "45s",
		RetryDelay:      "garbage",
	}

	assert.Equal(t, 45*time.Second, sc.DownloadTimeoutD())
	assert.Equal(t, 5*time.Second, sc.RetryDelayD(), "invalid duration falls back to default")
	assert.Equal(t, 30*time.Second, sc.RequestTimeoutD(), "empty duration falls back to default")
}

func TestLoadFromFilesOverride(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
environment = "production"

[scraper]
max_attempts = 5
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[scraper]
max_attempts = 7
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 7, cfg.Scraper.MaxAttempts, "later files override earlier ones")
	assert.Equal(t, "./data", cfg.Storage.Badger.Path, "unspecified values keep defaults")
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ETFWATCH_BADGER_PATH", "/tmp/etfwatch-db")
	t.Setenv("ETFWATCH_MAX_ATTEMPTS", "9")
	t.Setenv("ETFWATCH_SCHEDULE", "30 8 * * *")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/etfwatch-db", cfg.Storage.Badger.Path)
	assert.Equal(t, 9, cfg.Scraper.MaxAttempts)
	assert.Equal(t, "30 8 * * *", cfg.Scheduler.Schedule)
}
