// Package downloader walks the pending episodes of a catalog through the
// browser download flow and saves what the site hands over.
package downloader

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/catalog"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/logger"
)

// DefaultTriggerTimeout bounds the wait for the browser to start a download
const DefaultTriggerTimeout = 5 * time.Second

// Mode selects how finished transfers are saved
type Mode string

const (
	// ModeSingle saves each episode before moving to the next one
	ModeSingle Mode = "single"
	// ModeBatch starts each save in the background and moves on
	ModeBatch Mode = "batch"
)

// State is a step of the per-episode download flow
type State string

const (
	StateNavigating       State = "navigating"
	StateTriggering       State = "triggering"
	StateAwaitingTransfer State = "awaiting_transfer"
	StatePersisting       State = "persisting"
	StateUnavailable      State = "unavailable"
)

// Selectors locates the controls of a download page
type Selectors struct {
	Confirm       string
	Reveal        string
	DownloadLabel string
}

// Options configures one orchestration
type Options struct {
	RunID      string
	Catalog    string
	Variant    string
	CatalogDir string
	SourceURL  string
	Mode       Mode
	// ContinueOnUnavailable skips unavailable episodes instead of aborting
	ContinueOnUnavailable bool
	TriggerTimeout        time.Duration
	ClickTimeout          time.Duration
	DefaultExtension      string
	Selectors             Selectors
}

// Result is what an orchestration did, in attempt order
type Result struct {
	Attempted   []string
	Persisted   []string
	Unavailable []string
	Failed      []string
	// Tasks are the background saves drained by the barrier
	Tasks []*Task
}

// Orchestrator drives pending episodes through the download flow one at a
// time. Only saves overlap, in batch mode.
type Orchestrator struct {
	session  browser.Session
	filter   browser.Filter
	observer Observer
	opts     Options
}

// NewOrchestrator creates an orchestrator. A nil filter or observer is allowed.
func NewOrchestrator(session browser.Session, filter browser.Filter, observer Observer, opts Options) *Orchestrator {
	if filter == nil {
		filter = browser.NopFilter{}
	}
	if observer == nil {
		observer = Observers{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeBatch
	}
	if opts.TriggerTimeout <= 0 {
		opts.TriggerTimeout = DefaultTriggerTimeout
	}
	if opts.DefaultExtension == "" {
		opts.DefaultExtension = ".mp4"
	}
	return &Orchestrator{session: session, filter: filter, observer: observer, opts: opts}
}

// Run attempts every pending identifier in order, then waits for all
// background saves. An unavailable episode aborts the loop unless
// ContinueOnUnavailable is set; any other failure always does. Saves
// already started are drained in both cases, and failed background saves
// are reported together as a persist error.
func (o *Orchestrator) Run(ctx context.Context, pending []string) (*Result, error) {
	tracker := NewTracker()
	result := &Result{}

	var fatal error
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}

		result.Attempted = append(result.Attempted, id)
		err := o.acquire(ctx, tracker, id, result)
		if err == nil {
			continue
		}
		if errors.IsItemUnavailable(err) {
			result.Unavailable = append(result.Unavailable, id)
			if o.opts.ContinueOnUnavailable {
				continue
			}
		}
		fatal = err
		break
	}

	tasks := tracker.Barrier()
	result.Tasks = tasks

	var saveErrs []error
	for _, task := range tasks {
		if err := task.Err(); err != nil {
			result.Failed = append(result.Failed, task.Identifier)
			saveErrs = append(saveErrs, err)
			continue
		}
		result.Persisted = append(result.Persisted, task.Identifier)
	}

	var batchErr error
	if len(saveErrs) > 0 {
		batchErr = errors.Wrap(stderrors.Join(saveErrs...), errors.CodePersist, "background saves failed").
			WithContext("failed", len(saveErrs))
	}

	switch {
	case fatal != nil && batchErr != nil:
		return result, stderrors.Join(fatal, batchErr)
	case fatal != nil:
		return result, fatal
	case batchErr != nil:
		return result, batchErr
	}
	return result, nil
}

// acquire runs one identifier through the flow. It returns an
// ItemUnavailable error when the site did not hand over a file.
func (o *Orchestrator) acquire(ctx context.Context, tracker *Tracker, id string, result *Result) error {
	o.transition(ctx, id, StateNavigating)
	o.notify(Event{Kind: EventNavigating, Identifier: id})

	page, err := o.session.NewPage(ctx)
	if err != nil {
		return errors.BrowserError("failed to open page for "+id, err)
	}

	go func() {
		if err := o.filter.Attach(ctx, page); err != nil {
			logger.AppLogger().WithFields(map[string]interface{}{
				"identifier": id,
				"error":      err.Error(),
			}).Debug("content filter not attached")
		}
	}()

	url := catalog.DownloadURL(o.opts.SourceURL, id)
	if err := page.Navigate(ctx, url); err != nil {
		return o.unavailable(ctx, page, id, err)
	}

	o.transition(ctx, id, StateTriggering)
	if err := o.bounded(ctx, func(ctx context.Context) error { return page.Click(ctx, o.opts.Selectors.Confirm) }); err != nil {
		return o.unavailable(ctx, page, id, err)
	}
	if err := o.bounded(ctx, func(ctx context.Context) error { return page.Click(ctx, o.opts.Selectors.Reveal) }); err != nil {
		return o.unavailable(ctx, page, id, err)
	}

	o.transition(ctx, id, StateAwaitingTransfer)
	waitCtx, cancel := context.WithTimeout(ctx, o.opts.TriggerTimeout)
	download, err := page.ExpectDownload(waitCtx, func(ctx context.Context) error {
		return page.ClickText(ctx, o.opts.Selectors.DownloadLabel)
	})
	cancel()
	if err != nil {
		return o.unavailable(ctx, page, id, err)
	}

	o.transition(ctx, id, StatePersisting)
	path := EpisodePath(o.opts.CatalogDir, id, DetectExtension(download.SuggestedFilename(), o.opts.DefaultExtension))
	o.notify(Event{Kind: EventPersisting, Identifier: id, Path: path})

	// A save that has started is finished even if the run is interrupted.
	saveCtx := context.WithoutCancel(ctx)
	save := func() error {
		if err := download.SaveAs(saveCtx, path); err != nil {
			perr := errors.PersistError(id, err).WithContext("path", path)
			o.notify(Event{Kind: EventFailed, Identifier: id, Path: path, Err: perr})
			return perr
		}
		o.notify(Event{Kind: EventPersisted, Identifier: id, Path: path})
		return nil
	}

	if o.opts.Mode == ModeSingle {
		err := save()
		page.Close()
		if err != nil {
			result.Failed = append(result.Failed, id)
			return err
		}
		result.Persisted = append(result.Persisted, id)
		return nil
	}

	// Batch pages stay open until the session closes; the transfer belongs to them.
	return tracker.Register(&Task{Identifier: id, Path: path}, save)
}

// unavailable closes page and classifies err. Cancellation of the run is
// passed through as is.
func (o *Orchestrator) unavailable(ctx context.Context, page browser.Page, id string, err error) error {
	page.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	o.transition(ctx, id, StateUnavailable)
	uerr := errors.ItemUnavailableError(id, err)
	o.notify(Event{Kind: EventUnavailable, Identifier: id, Err: uerr})
	return uerr
}

// bounded runs a page interaction under the click timeout
func (o *Orchestrator) bounded(ctx context.Context, fn func(context.Context) error) error {
	if o.opts.ClickTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, o.opts.ClickTimeout)
	defer cancel()
	return fn(ctx)
}

func (o *Orchestrator) transition(ctx context.Context, id string, state State) {
	logger.AppLogger().WithFields(map[string]interface{}{
		"catalog":    o.opts.Catalog,
		"identifier": id,
		"state":      string(state),
	}).DebugContext(ctx, "episode state changed")
}

func (o *Orchestrator) notify(e Event) {
	e.RunID = o.opts.RunID
	e.Catalog = o.opts.Catalog
	e.Variant = o.opts.Variant
	e.Mode = o.opts.Mode
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.observer.Notify(e)
}
