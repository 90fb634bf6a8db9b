package scraper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/etfwatch/internal/models"
)

// snapshotDir returns the set of file names currently in dir. A missing
// directory counts as empty so callers can snapshot before Chrome creates it.
func snapshotDir(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = true
		}
	}
	return names, nil
}

// isPartialDownload reports whether the name is a browser in-progress marker.
func isPartialDownload(name string) bool {
	return strings.HasSuffix(name, ".crdownload") ||
		strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".tmp")
}

// waitForDownload polls dir until a file appears that was not in the before
// snapshot, then returns its path. In-progress downloads are not counted
// until the browser renames them to their final name. Returns
// DownloadTimeoutError when the budget is exhausted.
func waitForDownload(ctx context.Context, dir string, before map[string]bool, ticker string, pollInterval, timeout time.Duration) (string, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	deadline := time.Now().Add(timeout)

	for {
		after, err := snapshotDir(dir)
		if err != nil {
			return "", err
		}

		for name := range after {
			if before[name] || isPartialDownload(name) {
				continue
			}
			return filepath.Join(dir, name), nil
		}

		if time.Now().After(deadline) {
			return "", &models.DownloadTimeoutError{
				Ticker: ticker,
				Dir:    dir,
				Waited: timeout,
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
