// Package browsertest provides a scripted in-memory browser for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
)

// ErrNotVisible is returned by clicks on pages that do not offer a download
var ErrNotVisible = errors.New("element not visible")

// Item scripts the download page of one episode
type Item struct {
	// Missing makes every click on the page fail
	Missing bool
	// Silent lets the clicks succeed without a download ever starting
	Silent   bool
	Filename string
	Content  []byte
	// Delay is how long SaveAs takes once called
	Delay   time.Duration
	SaveErr error
}

// Site is a fake Session serving scripted pages
type Site struct {
	// Tag is the heading tag catalog labels are served under. Defaults to h3.
	Tag        string
	NewPageErr error

	mu          sync.Mutex
	catalogs    map[string][]string
	items       map[string]Item
	navErrs     map[string]error
	visits      []string
	clicks      map[string][]string
	blocked     [][]string
	opened      int
	closedPages int
	closed      bool

	saving      int
	maxSaving   int
	saves       []string
	saveStarted chan string
}

// NewSite creates an empty fake site
func NewSite() *Site {
	return &Site{
		Tag:      "h3",
		catalogs: make(map[string][]string),
		items:    make(map[string]Item),
		navErrs:  make(map[string]error),
		clicks:   make(map[string][]string),
	}
}

// AddCatalog serves labels as headings at url
func (s *Site) AddCatalog(url string, labels ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[url] = append([]string(nil), labels...)
}

// AddItem scripts the download page at url
func (s *Site) AddItem(url string, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[url] = item
}

// FailNavigation makes navigation to url fail with err
func (s *Site) FailNavigation(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navErrs[url] = err
}

// NotifySaves makes every SaveAs call send its destination path on ch
func (s *Site) NotifySaves(ch chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveStarted = ch
}

// Visits returns every URL navigated to, in order
func (s *Site) Visits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visits...)
}

// Clicks returns the click targets issued on the page at url
func (s *Site) Clicks(url string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks[url]...)
}

// Blocked returns the pattern lists installed through URL blocking
func (s *Site) Blocked() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.blocked...)
}

// OpenPages returns the number of pages not yet closed
func (s *Site) OpenPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened - s.closedPages
}

// PagesOpened returns the number of pages ever opened
func (s *Site) PagesOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed reports whether the session was closed
func (s *Site) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Saves returns completed save destinations in completion order
func (s *Site) Saves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saves...)
}

// MaxConcurrentSaves returns the highest number of overlapping SaveAs calls
func (s *Site) MaxConcurrentSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSaving
}

// NewPage implements browser.Session
func (s *Site) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("session closed")
	}
	if s.NewPageErr != nil {
		return nil, s.NewPageErr
	}
	s.opened++
	return &page{site: s}, nil
}

// Close implements browser.Session
func (s *Site) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type page struct {
	site   *Site
	url    string
	closed bool
}

func (p *page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.visits = append(p.site.visits, url)
	if err := p.site.navErrs[url]; err != nil {
		return err
	}
	_, isCatalog := p.site.catalogs[url]
	_, isItem := p.site.items[url]
	if !isCatalog && !isItem {
		return fmt.Errorf("navigate %s: 404 not found", url)
	}
	p.url = url
	return nil
}

func (p *page) TextContents(ctx context.Context, tag string) ([]string, error) {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if tag != p.site.Tag {
		return []string{}, nil
	}
	return append([]string{}, p.site.catalogs[p.url]...), nil
}

func (p *page) click(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.clicks[p.url] = append(p.site.clicks[p.url], target)
	item, ok := p.site.items[p.url]
	if !ok || item.Missing {
		return ErrNotVisible
	}
	return nil
}

func (p *page) Click(ctx context.Context, selector string) error {
	return p.click(ctx, selector)
}

func (p *page) ClickText(ctx context.Context, label string) error {
	return p.click(ctx, label)
}

func (p *page) ExpectDownload(ctx context.Context, action func(context.Context) error) (browser.Download, error) {
	if err := action(ctx); err != nil {
		return nil, err
	}
	p.site.mu.Lock()
	item := p.site.items[p.url]
	p.site.mu.Unlock()

	if item.Silent {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &download{site: p.site, item: item}, nil
}

func (p *page) BlockURLs(ctx context.Context, patterns []string) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.blocked = append(p.site.blocked, append([]string(nil), patterns...))
	return nil
}

func (p *page) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.site.closedPages++
	}
	return nil
}

type download struct {
	site *Site
	item Item
}

func (d *download) SuggestedFilename() string {
	return d.item.Filename
}

func (d *download) SaveAs(ctx context.Context, path string) error {
	d.site.mu.Lock()
	d.site.saving++
	if d.site.saving > d.site.maxSaving {
		d.site.maxSaving = d.site.saving
	}
	notify := d.site.saveStarted
	d.site.mu.Unlock()

	defer func() {
		d.site.mu.Lock()
		d.site.saving--
		d.site.mu.Unlock()
	}()

	if notify != nil {
		notify <- path
	}

	if d.item.Delay > 0 {
		select {
		case <-time.After(d.item.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.item.SaveErr != nil {
		return d.item.SaveErr
	}
	if err := os.WriteFile(path, d.item.Content, 0644); err != nil {
		return err
	}

	d.site.mu.Lock()
	d.site.saves = append(d.site.saves, path)
	d.site.mu.Unlock()
	return nil
}
