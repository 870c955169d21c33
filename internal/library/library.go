// Package library reads what has already been acquired on disk and
// reconciles it against a discovered catalog.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/glefebvre/animedl/internal/errors"
)

// MediaExtensions lists the file extensions a persisted episode may carry.
// An entry "x.mp4" marks identifier "x" as acquired just like an entry "x".
var MediaExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".flv":  true,
	".webm": true,
	".mpg":  true,
	".3gp":  true,
	".wmv":  true,
	".ts":   true,
	".m4v":  true,
}

// LocalState is the set of identifiers already present in a catalog directory
type LocalState map[string]struct{}

// Has reports whether identifier is present
func (s LocalState) Has(identifier string) bool {
	_, ok := s[identifier]
	return ok
}

// ReadLocalState lists the entries directly under dir once. Presence is
// judged by name only; a half-written or empty entry still counts.
func ReadLocalState(dir string) (LocalState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.FilesystemError(fmt.Sprintf("failed to read catalog directory %s", dir), err)
	}

	state := make(LocalState, len(entries)*2)
	for _, entry := range entries {
		name := entry.Name()
		state[name] = struct{}{}
		if ext := strings.ToLower(filepath.Ext(name)); MediaExtensions[ext] {
			state[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
		}
	}
	return state, nil
}

// Diff returns the identifiers of catalog missing from local, in catalog order.
// Duplicate catalog entries are kept, as they are in the catalog.
func Diff(catalog []string, local LocalState) []string {
	pending := make([]string, 0, len(catalog))
	for _, id := range catalog {
		if !local.Has(id) {
			pending = append(pending, id)
		}
	}
	return pending
}

// Pending reads dir and returns the catalog identifiers not yet present there
func Pending(dir string, catalog []string) ([]string, error) {
	local, err := ReadLocalState(dir)
	if err != nil {
		return nil, err
	}
	return Diff(catalog, local), nil
}

// EnsureCatalogDir makes sure {targetDir}/{catalog} exists and returns its
// path. It does nothing when the directory is already there.
func EnsureCatalogDir(targetDir, catalog string) (string, error) {
	if catalog == "" || catalog != filepath.Base(catalog) || catalog == "." || catalog == ".." {
		return "", apperrors.ValidationError(fmt.Sprintf("invalid catalog name %q", catalog))
	}

	dir := filepath.Join(targetDir, catalog)
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, nil
	case err == nil:
		return "", apperrors.FilesystemError(fmt.Sprintf("%s exists and is not a directory", dir), nil)
	case !os.IsNotExist(err):
		return "", apperrors.FilesystemError(fmt.Sprintf("failed to stat %s", dir), err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.FilesystemError(fmt.Sprintf("failed to create catalog directory %s", dir), err)
	}
	return dir, nil
}
