package downloader

import (
	"fmt"
	"path/filepath"

	"github.com/glefebvre/animedl/internal/errors"
	"github.com/gofrs/flock"
)

// RunLock keeps two runs from downloading the same catalog into the same
// target directory at once
type RunLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file of catalog under targetDir
func LockPath(targetDir, catalog string) string {
	return filepath.Join(targetDir, ".animedl-"+catalog+".lock")
}

// AcquireRunLock takes the run lock without waiting
func AcquireRunLock(targetDir, catalog string) (*RunLock, error) {
	path := LockPath(targetDir, catalog)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.FilesystemError(fmt.Sprintf("failed to acquire run lock %s", path), err)
	}
	if !ok {
		return nil, errors.FilesystemError(fmt.Sprintf("another run for %s is already in progress (lock %s)", catalog, path), nil)
	}
	return &RunLock{lock: fl}, nil
}

// Release gives the lock back
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
