package downloader

import (
	"context"
	"strings"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/catalog"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/library"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/google/uuid"
)

// Request is one invocation of the download command
type Request struct {
	Catalog               string
	TargetDir             string
	Variant               catalog.Variant
	Mode                  Mode
	ContinueOnUnavailable bool
}

// Settings are the site and download knobs shared by every run
type Settings struct {
	Source           catalog.Source
	EpisodeTag       string
	Selectors        Selectors
	TriggerTimeout   time.Duration
	ClickTimeout     time.Duration
	DefaultExtension string
	MinFreeBytes     uint64
}

// Summary describes a finished run
type Summary struct {
	RunID      string
	Catalog    string
	Variant    catalog.Variant
	Mode       Mode
	SourceURL  string
	CatalogDir string
	Discovered []string
	Pending    []string
	Result     *Result
}

// Pipeline discovers a catalog, reconciles it with disk and downloads
// what is missing
type Pipeline struct {
	session  browser.Session
	filter   browser.Filter
	observer Observer
	settings Settings
}

// NewPipeline creates a pipeline on top of an open browser session
func NewPipeline(session browser.Session, filter browser.Filter, observer Observer, settings Settings) *Pipeline {
	if observer == nil {
		observer = Observers{}
	}
	return &Pipeline{session: session, filter: filter, observer: observer, settings: settings}
}

// Run executes one full run. The returned summary is filled as far as the
// run got, even on error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Summary, error) {
	if strings.TrimSpace(req.Catalog) == "" {
		return nil, errors.ValidationError("catalog name is required")
	}
	if strings.TrimSpace(req.TargetDir) == "" {
		return nil, errors.ValidationError("target directory is required")
	}
	if req.Mode == "" {
		req.Mode = ModeBatch
	}

	summary := &Summary{
		RunID:   uuid.New().String(),
		Catalog: req.Catalog,
		Variant: req.Variant,
		Mode:    req.Mode,
	}
	ctx = logger.ContextWithRunID(ctx, summary.RunID)
	ctx = logger.ContextWithCatalog(ctx, req.Catalog)

	err := p.run(ctx, req, summary)

	finished := Event{
		Kind:       EventRunFinished,
		Mode:       req.Mode,
		Discovered: len(summary.Discovered),
		Pending:    len(summary.Pending),
		Err:        err,
	}
	p.notify(summary, finished)
	return summary, err
}

func (p *Pipeline) run(ctx context.Context, req Request, summary *Summary) error {
	log := logger.AppLogger()

	sourceURL, err := p.settings.Source.URL(req.Variant, req.Catalog)
	if err != nil {
		return err
	}
	summary.SourceURL = sourceURL

	catalogDir, err := library.EnsureCatalogDir(req.TargetDir, req.Catalog)
	if err != nil {
		return err
	}
	summary.CatalogDir = catalogDir

	lock, err := AcquireRunLock(req.TargetDir, req.Catalog)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release run lock: " + err.Error())
		}
	}()

	if err := CheckFreeSpace(catalogDir, p.settings.MinFreeBytes); err != nil {
		return err
	}

	ids, page, err := catalog.NewDiscoverer(p.session, p.settings.EpisodeTag).Discover(ctx, sourceURL)
	if err != nil {
		return err
	}
	page.Close()
	summary.Discovered = ids

	pending, err := library.Pending(catalogDir, ids)
	if err != nil {
		return err
	}
	summary.Pending = pending

	p.notify(summary, Event{
		Kind:       EventRunStarted,
		Mode:       req.Mode,
		Path:       catalogDir,
		Discovered: len(ids),
		Pending:    len(pending),
	})

	log.WithFields(map[string]interface{}{
		"discovered": len(ids),
		"pending":    len(pending),
		"mode":       string(req.Mode),
	}).InfoContext(ctx, "catalog reconciled")

	orchestrator := NewOrchestrator(p.session, p.filter, p.observer, Options{
		RunID:                 summary.RunID,
		Catalog:               req.Catalog,
		Variant:               string(req.Variant),
		CatalogDir:            catalogDir,
		SourceURL:             sourceURL,
		Mode:                  req.Mode,
		ContinueOnUnavailable: req.ContinueOnUnavailable,
		TriggerTimeout:        p.settings.TriggerTimeout,
		ClickTimeout:          p.settings.ClickTimeout,
		DefaultExtension:      p.settings.DefaultExtension,
		Selectors:             p.settings.Selectors,
	})

	result, err := orchestrator.Run(ctx, pending)
	summary.Result = result
	return err
}

func (p *Pipeline) notify(summary *Summary, e Event) {
	e.RunID = summary.RunID
	e.Catalog = summary.Catalog
	e.Variant = string(summary.Variant)
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	p.observer.Notify(e)
}
