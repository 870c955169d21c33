package downloader

import (
	"path/filepath"
	"strings"

	"github.com/glefebvre/animedl/internal/library"
)

// EpisodePath returns {catalogDir}/{identifier}{ext}
func EpisodePath(catalogDir, identifier, ext string) string {
	return filepath.Join(catalogDir, identifier+ext)
}

// DetectExtension picks the extension of the browser's suggested filename
// when it is a known video container, otherwise fallback
func DetectExtension(suggested, fallback string) string {
	// Drop anything that looks like a query string
	if idx := strings.IndexAny(suggested, "?#"); idx != -1 {
		suggested = suggested[:idx]
	}

	ext := strings.ToLower(filepath.Ext(suggested))
	if library.MediaExtensions[ext] {
		return ext
	}

	if fallback != "" && !strings.HasPrefix(fallback, ".") {
		fallback = "." + fallback
	}
	return fallback
}
