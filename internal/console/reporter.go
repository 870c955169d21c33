// Package console prints run progress and history tables for humans.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/glefebvre/animedl/internal/downloader"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// Reporter writes one line per run event. It never influences the run.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewReporter creates a Reporter writing to out
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Notify implements downloader.Observer
func (r *Reporter) Notify(e downloader.Event) {
	line := r.format(e)
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func (r *Reporter) format(e downloader.Event) string {
	switch e.Kind {
	case downloader.EventRunStarted:
		return fmt.Sprintf("%s %s: %d episodes found, %d to download %s",
			infoColor.Sprint(e.Catalog),
			dimColor.Sprintf("(%s)", e.Variant),
			e.Discovered, e.Pending,
			dimColor.Sprintf("[%s]", e.Mode))
	case downloader.EventNavigating:
		return infoColor.Sprint("→ ") + e.Identifier
	case downloader.EventUnavailable:
		return warnColor.Sprintf("✗ %s is not available", e.Identifier)
	case downloader.EventPersisting:
		if e.Mode == downloader.ModeBatch {
			return dimColor.Sprintf("↓ %s downloading in background", e.Identifier)
		}
		return dimColor.Sprintf("↓ %s downloading", e.Identifier)
	case downloader.EventPersisted:
		return successColor.Sprint("✓ ") + fmt.Sprintf("%s saved to %s", e.Identifier, e.Path)
	case downloader.EventFailed:
		return errorColor.Sprintf("✗ %s could not be saved: %v", e.Identifier, e.Err)
	case downloader.EventRunFinished:
		if e.Err != nil {
			return errorColor.Sprintf("%s: stopped: %v", e.Catalog, e.Err)
		}
		if e.Pending == 0 {
			return successColor.Sprintf("%s: everything is already downloaded", e.Catalog)
		}
		return successColor.Sprintf("%s: done", e.Catalog)
	}
	return ""
}

// Banner prints the program name and version
func Banner(out io.Writer, version string) {
	fmt.Fprintf(out, "%s %s\n", infoColor.Sprint("animedl"), dimColor.Sprint(version))
}
