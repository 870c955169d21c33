// Package catalog lists the episodes a remote source offers for one series.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/identifier"
	"github.com/glefebvre/animedl/internal/logger"
)

// Variant selects the dubbed or subtitled release of a series
type Variant string

const (
	Dubbed    Variant = "dubbed"
	Subtitled Variant = "subtitled"
)

// VariantFor maps the CLI flag to a variant
func VariantFor(dubbed bool) Variant {
	if dubbed {
		return Dubbed
	}
	return Subtitled
}

// Source builds URLs for a site's catalogs
type Source struct {
	BaseURL  string
	Segments map[Variant]string
}

// URL returns the catalog page of name for variant
func (s Source) URL(variant Variant, name string) (string, error) {
	segment, ok := s.Segments[variant]
	if !ok || segment == "" {
		return "", errors.ValidationError(fmt.Sprintf("no path segment configured for variant %q", variant))
	}
	return SourceURL(s.BaseURL, segment, name), nil
}

// SourceURL joins base, variant segment and catalog name
func SourceURL(baseURL, segment, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + segment + "/" + url.PathEscape(name)
}

// DownloadURL returns the download page of one episode
func DownloadURL(sourceURL, id string) string {
	return strings.TrimRight(sourceURL, "/") + "/" + url.PathEscape(id) + "/download"
}

// Discoverer extracts episode identifiers from catalog pages
type Discoverer struct {
	session browser.Session
	tag     string
}

// NewDiscoverer creates a Discoverer reading labels from elements named tag
func NewDiscoverer(session browser.Session, tag string) *Discoverer {
	return &Discoverer{session: session, tag: tag}
}

// Discover loads sourceURL and returns the normalized identifier of every
// heading, in document order. Identifiers that are not usable as a file name
// and repeated identifiers are dropped so that each identifier maps to one
// distinct destination path; the result may be shorter than the number of
// headings on the page. The page is returned open for the caller to
// reuse or close.
func (d *Discoverer) Discover(ctx context.Context, sourceURL string) ([]string, browser.Page, error) {
	log := logger.AppLogger()

	page, err := d.session.NewPage(ctx)
	if err != nil {
		return nil, nil, errors.DiscoveryError("failed to open catalog page", err)
	}

	if err := page.Navigate(ctx, sourceURL); err != nil {
		page.Close()
		return nil, nil, errors.DiscoveryError(fmt.Sprintf("failed to load catalog %s", sourceURL), err).
			WithContext("url", sourceURL)
	}

	labels, err := page.TextContents(ctx, d.tag)
	if err != nil {
		page.Close()
		return nil, nil, errors.DiscoveryError(fmt.Sprintf("failed to read episode list from %s", sourceURL), err).
			WithContext("url", sourceURL)
	}

	ids := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		id := identifier.Normalize(label)
		if !usableName(id) {
			log.WithFields(map[string]interface{}{
				"identifier": id,
				"label":      label,
			}).Warn("catalog entry without a usable name skipped")
			continue
		}
		if _, dup := seen[id]; dup {
			log.WithFields(map[string]interface{}{
				"identifier": id,
				"label":      label,
			}).Debug("duplicate catalog entry skipped")
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	log.WithFields(map[string]interface{}{
		"url":      sourceURL,
		"labels":   len(labels),
		"episodes": len(ids),
	}).Info("catalog discovered")

	return ids, page, nil
}

// usableName reports whether id can name a file inside the catalog directory
func usableName(id string) bool {
	if strings.Trim(id, "-.") == "" {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}
