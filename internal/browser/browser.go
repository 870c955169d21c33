// Package browser defines the headless browser capabilities used to list a
// catalog and trigger episode downloads, and provides a chromedp backed
// implementation.
package browser

import (
	"context"
)

// Session is a single browser with one browsing context. Every page is a
// child of it and closing the session is the only teardown action.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browser tab
type Page interface {
	// Navigate loads url and waits for the document to be ready
	Navigate(ctx context.Context, url string) error
	// TextContents returns the text of every element with the given tag, in DOM order
	TextContents(ctx context.Context, tag string) ([]string, error)
	// Click clicks the first element matching a CSS selector
	Click(ctx context.Context, selector string) error
	// ClickText clicks the first element whose text contains label
	ClickText(ctx context.Context, label string) error
	// ExpectDownload runs action and waits for the download it causes.
	// The wait is bounded by ctx.
	ExpectDownload(ctx context.Context, action func(context.Context) error) (Download, error)
	Close() error
}

// Download is a transfer started by the browser
type Download interface {
	SuggestedFilename() string
	// SaveAs waits for the transfer to finish and writes it to path
	SaveAs(ctx context.Context, path string) error
}

// Filter suppresses ad and tracker requests on a page. Failures are
// not fatal to the caller.
type Filter interface {
	Attach(ctx context.Context, page Page) error
}

// NopFilter leaves pages untouched
type NopFilter struct{}

// Attach implements Filter
func (NopFilter) Attach(context.Context, Page) error { return nil }
