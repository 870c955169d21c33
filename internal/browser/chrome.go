package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	apperrors "github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/google/uuid"
)

// StagingDirPrefix names the per-session directories downloads land in
// before they are moved to their final path
const StagingDirPrefix = "animedl-download-"

// ErrSessionClosed is returned by SaveAs when the browser went away first
var ErrSessionClosed = errors.New("browser session closed before the download finished")

// Options configures a chromedp session
type Options struct {
	Headless          bool
	ExecPath          string
	StagingRoot       string // empty means os.TempDir()
	NavigationTimeout time.Duration
}

// ChromeSession drives a Chrome/Chromium instance through the DevTools protocol
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	stagingDir  string
	navTimeout  time.Duration

	mu        sync.Mutex
	downloads map[string]*chromeDownload
	waiters   map[cdp.FrameID]chan *chromeDownload
	closed    bool
}

// Launch starts a browser. The session outlives ctx cancellation on purpose:
// only Close tears it down, so in-flight downloads can still be drained.
func Launch(ctx context.Context, opts Options) (*ChromeSession, error) {
	root := opts.StagingRoot
	if root == "" {
		root = os.TempDir()
	}
	staging := filepath.Join(root, StagingDirPrefix+uuid.New().String())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, apperrors.FilesystemError("failed to create download staging directory", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	log := logger.AppLogger()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		os.RemoveAll(staging)
		return nil, apperrors.BrowserError("failed to launch browser", err)
	}

	log.WithFields(map[string]interface{}{
		"headless": opts.Headless,
		"staging":  staging,
	}).Debug("browser launched")

	return &ChromeSession{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		stagingDir:  staging,
		navTimeout:  opts.NavigationTimeout,
		downloads:   make(map[string]*chromeDownload),
	}, nil
}

// StagingDir returns the directory downloads are written to while in progress
func (s *ChromeSession) StagingDir() string {
	return s.stagingDir
}

// NewPage opens a tab in the session's browsing context
func (s *ChromeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, apperrors.BrowserError("cannot open page", ErrSessionClosed)
	}

	tabCtx, cancel := chromedp.NewContext(s.ctx)
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run attaches the tab; it must not use a deadline-bound
	// context or the tab would be closed when the deadline passes.
	err := chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(s.stagingDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		cancel()
		return nil, apperrors.BrowserError("failed to open page", err)
	}
	if ctx.Err() != nil {
		cancel()
		return nil, apperrors.BrowserError("failed to open page", ctx.Err())
	}

	// The main frame of a tab shares the id of its target.
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		cancel()
		return nil, apperrors.BrowserError("failed to open page", errors.New("tab has no target"))
	}
	frame := cdp.FrameID(c.Target.TargetID)
	return &chromePage{session: s, ctx: tabCtx, cancel: cancel, frame: frame}, nil
}

// Close shuts the browser down and removes the staging directory
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := make([]*chromeDownload, 0, len(s.downloads))
	for _, d := range s.downloads {
		pending = append(pending, d)
	}
	s.mu.Unlock()

	for _, d := range pending {
		d.finish(ErrSessionClosed)
	}

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	os.RemoveAll(s.stagingDir)

	if err != nil && !errors.Is(err, context.Canceled) {
		return apperrors.BrowserError("failed to close browser", err)
	}
	return nil
}

func (s *ChromeSession) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		d := s.track(ev.GUID, ev.SuggestedFilename, ev.URL)
		s.mu.Lock()
		waiter := s.waiters[ev.FrameID]
		s.mu.Unlock()
		if waiter != nil {
			select {
			case waiter <- d:
			default:
			}
		}
	case *cdpbrowser.EventDownloadProgress:
		s.mu.Lock()
		d := s.downloads[ev.GUID]
		s.mu.Unlock()
		if d == nil {
			return
		}
		switch ev.State {
		case cdpbrowser.DownloadProgressStateCompleted:
			d.finish(nil)
		case cdpbrowser.DownloadProgressStateCanceled:
			d.finish(fmt.Errorf("download %s was canceled by the browser", d.suggested))
		}
	}
}

// track records a download. Events for one GUID may reach several tabs.
func (s *ChromeSession) track(guid, suggested, url string) *chromeDownload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.downloads[guid]; ok {
		return d
	}
	d := &chromeDownload{
		guid:      guid,
		suggested: suggested,
		url:       url,
		staged:    filepath.Join(s.stagingDir, guid),
		done:      make(chan struct{}),
	}
	s.downloads[guid] = d
	return d
}

// expect installs the receiver for the next download started by frame.
// Downloads from other tabs, such as a late one from an episode that already
// timed out, are never handed to it.
func (s *ChromeSession) expect(frame cdp.FrameID) chan *chromeDownload {
	ch := make(chan *chromeDownload, 1)
	s.mu.Lock()
	if s.waiters == nil {
		s.waiters = make(map[cdp.FrameID]chan *chromeDownload)
	}
	s.waiters[frame] = ch
	s.mu.Unlock()
	return ch
}

func (s *ChromeSession) unexpect(frame cdp.FrameID, ch chan *chromeDownload) {
	s.mu.Lock()
	if s.waiters[frame] == ch {
		delete(s.waiters, frame)
	}
	s.mu.Unlock()
}

type chromePage struct {
	session   *ChromeSession
	frame     cdp.FrameID
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// run executes actions on the tab, bounded by the caller's ctx
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if p.session.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.session.navTimeout)
		defer cancel()
	}
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromePage) TextContents(ctx context.Context, tag string) ([]string, error) {
	var texts []string
	js := fmt.Sprintf(`Array.from(document.getElementsByTagName(%s), (e) => e.textContent)`, strconv.Quote(tag))
	if err := p.run(ctx, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) ClickText(ctx context.Context, label string) error {
	xpath := fmt.Sprintf(`//*[contains(normalize-space(text()), %s)]`, xpathLiteral(label))
	return p.run(ctx, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible))
}

func (p *chromePage) ExpectDownload(ctx context.Context, action func(context.Context) error) (Download, error) {
	ch := p.session.expect(p.frame)
	defer p.session.unexpect(p.frame, ch)

	if err := action(ctx); err != nil {
		return nil, err
	}

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BlockURLs stops the tab from loading requests that match any pattern
func (p *chromePage) BlockURLs(ctx context.Context, patterns []string) error {
	return p.run(ctx, network.Enable(), network.SetBlockedURLS(patterns))
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}

type chromeDownload struct {
	guid      string
	suggested string
	url       string
	staged    string

	done chan struct{}
	once sync.Once
	err  error
}

func (d *chromeDownload) finish(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

func (d *chromeDownload) SuggestedFilename() string {
	return d.suggested
}

func (d *chromeDownload) SaveAs(ctx context.Context, path string) error {
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d.err != nil {
		return d.err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := moveFile(d.staged, path); err != nil {
		return err
	}
	return os.Chmod(path, 0644)
}

// xpathLiteral quotes s for use inside an XPath expression
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = `"` + part + `"`
	}
	return `concat(` + strings.Join(quoted, `, '"', `) + `)`
}
