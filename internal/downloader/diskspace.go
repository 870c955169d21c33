package downloader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glefebvre/animedl/internal/errors"
	"golang.org/x/sys/unix"
)

// DiskSpace represents available disk space information
type DiskSpace struct {
	Available uint64  // Available bytes for unprivileged users
	Free      uint64  // Free bytes on filesystem
	Total     uint64  // Total bytes on filesystem
	UsedPct   float64 // Percentage of space used
}

// GetDiskSpace returns disk space information for the filesystem holding
// path, walking up to the nearest existing parent
func GetDiskSpace(path string) (*DiskSpace, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	checkPath := absPath
	for {
		if _, err := os.Stat(checkPath); err == nil {
			break
		}
		parent := filepath.Dir(checkPath)
		if parent == checkPath {
			return nil, fmt.Errorf("no existing directory found in path")
		}
		checkPath = parent
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(checkPath, &stat); err != nil {
		return nil, fmt.Errorf("failed to get filesystem stats: %w", err)
	}

	bsize := uint64(stat.Bsize)
	space := &DiskSpace{
		Available: stat.Bavail * bsize,
		Free:      stat.Bfree * bsize,
		Total:     stat.Blocks * bsize,
	}
	if space.Total > 0 {
		space.UsedPct = float64(space.Total-space.Free) / float64(space.Total) * 100
	}
	return space, nil
}

// FormatBytes formats bytes into human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// CheckFreeSpace fails when the filesystem holding dir has less than
// minFreeBytes available. Zero disables the check.
func CheckFreeSpace(dir string, minFreeBytes uint64) error {
	if minFreeBytes == 0 {
		return nil
	}

	space, err := GetDiskSpace(dir)
	if err != nil {
		return errors.FilesystemError("failed to check disk space", err)
	}

	if space.Available < minFreeBytes {
		return errors.FilesystemError(fmt.Sprintf(
			"insufficient disk space in %s: available=%s, required=%s",
			dir, FormatBytes(space.Available), FormatBytes(minFreeBytes),
		), nil).WithContext("available", space.Available)
	}
	return nil
}
