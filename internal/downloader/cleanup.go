package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/logger"
)

const defaultRetentionHours = 24

// CleanupOptions holds configuration for staging directory cleanup
type CleanupOptions struct {
	TempDir        string
	RetentionHours int
	DryRun         bool
	Now            func() time.Time
}

// CleanupReport lists what a cleanup removed (or would remove) and kept
type CleanupReport struct {
	Removed []string
	Skipped int
}

// CleanupStaging removes browser staging directories left behind by runs
// that were killed before closing their session
func CleanupStaging(opts CleanupOptions) (*CleanupReport, error) {
	log := logger.AppLogger()

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if opts.RetentionHours <= 0 {
		opts.RetentionHours = defaultRetentionHours
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	cutoff := now().Add(-time.Duration(opts.RetentionHours) * time.Hour)
	log.WithFields(map[string]interface{}{
		"dir":    tempDir,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("scanning for orphaned staging directories")

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, errors.FilesystemError("failed to read temp directory", err)
	}

	report := &CleanupReport{}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), browser.StagingDirPrefix) {
			continue
		}

		dirPath := filepath.Join(tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			log.Warn(fmt.Sprintf("failed to stat %s: %v", dirPath, err))
			continue
		}

		if info.ModTime().After(cutoff) {
			report.Skipped++
			continue
		}

		age := now().Sub(info.ModTime()).Round(time.Hour)
		if opts.DryRun {
			log.Info(fmt.Sprintf("[DRY RUN] would remove %s (age: %s)", dirPath, age))
			report.Removed = append(report.Removed, dirPath)
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			log.Error(fmt.Sprintf("failed to remove %s", dirPath), err)
			continue
		}
		log.Info(fmt.Sprintf("removed orphaned staging directory %s (age: %s)", dirPath, age))
		report.Removed = append(report.Removed, dirPath)
	}

	log.Info(fmt.Sprintf("cleanup complete: %d removed, %d skipped (too recent)", len(report.Removed), report.Skipped))
	return report, nil
}
