package browser

import (
	"context"
)

// URLBlocker is implemented by pages that can refuse requests by URL pattern
type URLBlocker interface {
	BlockURLs(ctx context.Context, patterns []string) error
}

// BlocklistFilter blocks ad and tracker hosts by wildcard URL pattern
type BlocklistFilter struct {
	patterns []string
}

// NewBlocklistFilter creates a filter for the given patterns ("*doubleclick.net*")
func NewBlocklistFilter(patterns []string) *BlocklistFilter {
	return &BlocklistFilter{patterns: append([]string(nil), patterns...)}
}

// Attach installs the blocklist on page. Pages that cannot block are left alone.
func (f *BlocklistFilter) Attach(ctx context.Context, page Page) error {
	if page == nil || len(f.patterns) == 0 {
		return nil
	}
	blocker, ok := page.(URLBlocker)
	if !ok {
		return nil
	}
	return blocker.BlockURLs(ctx, f.patterns)
}

// Patterns returns a copy of the configured patterns
func (f *BlocklistFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
