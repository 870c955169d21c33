package downloader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/browser/browsertest"
	"github.com/glefebvre/animedl/internal/catalog"
	apperrors "github.com/glefebvre/animedl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSourceURL = "https://anime.example/anime/legendado/naruto"

var testSelectors = Selectors{
	Confirm:       `a[class="btn btn-danger mb-2"]`,
	Reveal:        `button[class="mb-5 btn btn-warning"]`,
	DownloadLabel: "Baixar",
}

// eventLog records observer events from any goroutine
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Notify(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds(id string) []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []EventKind
	for _, e := range l.events {
		if e.Identifier == id {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

func itemURL(id string) string {
	return catalog.DownloadURL(testSourceURL, id)
}

func scriptedSite(items map[string]browsertest.Item) *browsertest.Site {
	site := browsertest.NewSite()
	for id, item := range items {
		site.AddItem(itemURL(id), item)
	}
	return site
}

func testOptions(dir string, mode Mode, continueOnUnavailable bool) Options {
	return Options{
		RunID:                 "run-1",
		Catalog:               "naruto",
		Variant:               "subtitled",
		CatalogDir:            dir,
		SourceURL:             testSourceURL,
		Mode:                  mode,
		ContinueOnUnavailable: continueOnUnavailable,
		TriggerTimeout:        50 * time.Millisecond,
		ClickTimeout:          time.Second,
		Selectors:             testSelectors,
	}
}

func video(id string) browsertest.Item {
	return browsertest.Item{Filename: id + ".mp4", Content: []byte("video:" + id)}
}

func TestOrchestrator_SingleMode(t *testing.T) {
	dir := t.TempDir()
	ids := []string{"ep-01", "ep-02", "ep-03"}
	items := map[string]browsertest.Item{}
	for _, id := range ids {
		items[id] = video(id)
	}
	site := scriptedSite(items)
	events := &eventLog{}

	result, err := NewOrchestrator(site, nil, events, testOptions(dir, ModeSingle, false)).
		Run(context.Background(), ids)

	require.NoError(t, err)
	assert.Equal(t, ids, result.Attempted)
	assert.Equal(t, ids, result.Persisted)
	assert.Empty(t, result.Tasks, "single mode never registers tasks")
	assert.Equal(t, 0, site.OpenPages())

	for _, id := range ids {
		data, err := os.ReadFile(filepath.Join(dir, id+".mp4"))
		require.NoError(t, err)
		assert.Equal(t, "video:"+id, string(data))
		assert.Equal(t, []string{testSelectors.Confirm, testSelectors.Reveal, testSelectors.DownloadLabel}, site.Clicks(itemURL(id)))
		assert.Equal(t, []EventKind{EventNavigating, EventPersisting, EventPersisted}, events.kinds(id))
	}
	assert.Equal(t, []string{itemURL("ep-01"), itemURL("ep-02"), itemURL("ep-03")}, site.Visits())
}

func TestOrchestrator_BatchMode(t *testing.T) {
	dir := t.TempDir()
	ids := []string{"ep-01", "ep-02", "ep-03"}
	delays := []time.Duration{60 * time.Millisecond, 0, 20 * time.Millisecond}
	items := map[string]browsertest.Item{}
	for i, id := range ids {
		item := video(id)
		item.Delay = delays[i]
		items[id] = item
	}
	site := scriptedSite(items)

	result, err := NewOrchestrator(site, nil, nil, testOptions(dir, ModeBatch, false)).
		Run(context.Background(), ids)

	require.NoError(t, err)
	assert.Equal(t, ids, result.Persisted)
	require.Len(t, result.Tasks, 3)
	for _, task := range result.Tasks {
		assert.True(t, task.Settled())
		assert.NoError(t, task.Err())
		assert.FileExists(t, task.Path)
	}
	assert.Equal(t, 3, site.OpenPages(), "batch pages stay open until the session closes")
	assert.Len(t, site.Saves(), 3)
}

func TestOrchestrator_UnavailablePolicy(t *testing.T) {
	ids := []string{"ep-01", "ep-02", "ep-03", "ep-04"}

	for _, unavailable := range []browsertest.Item{{Missing: true}, {Silent: true}} {
		for _, mode := range []Mode{ModeSingle, ModeBatch} {
			name := fmt.Sprintf("%s missing=%v silent=%v", mode, unavailable.Missing, unavailable.Silent)

			t.Run(name+" abort", func(t *testing.T) {
				items := map[string]browsertest.Item{"ep-01": video("ep-01"), "ep-02": unavailable, "ep-03": video("ep-03"), "ep-04": video("ep-04")}
				site := scriptedSite(items)

				result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), mode, false)).
					Run(context.Background(), ids)

				require.Error(t, err)
				assert.True(t, apperrors.IsItemUnavailable(err))
				assert.Contains(t, err.Error(), "ep-02")
				assert.Equal(t, []string{"ep-01", "ep-02"}, result.Attempted)
				assert.Equal(t, []string{"ep-02"}, result.Unavailable)
				assert.Equal(t, []string{"ep-01"}, result.Persisted)
				assert.NotContains(t, site.Visits(), itemURL("ep-03"))
				assert.NotContains(t, site.Visits(), itemURL("ep-04"))
			})

			t.Run(name+" continue", func(t *testing.T) {
				items := map[string]browsertest.Item{"ep-01": video("ep-01"), "ep-02": unavailable, "ep-03": video("ep-03"), "ep-04": video("ep-04")}
				site := scriptedSite(items)

				result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), mode, true)).
					Run(context.Background(), ids)

				require.NoError(t, err)
				assert.Equal(t, ids, result.Attempted)
				assert.Equal(t, []string{"ep-02"}, result.Unavailable)
				assert.Equal(t, []string{"ep-01", "ep-03", "ep-04"}, result.Persisted)
			})
		}
	}
}

func TestOrchestrator_NavigationFailureIsUnavailable(t *testing.T) {
	site := scriptedSite(map[string]browsertest.Item{"ep-01": video("ep-01")})
	site.FailNavigation(itemURL("ep-01"), errors.New("net::ERR_CONNECTION_RESET"))
	events := &eventLog{}

	result, err := NewOrchestrator(site, nil, events, testOptions(t.TempDir(), ModeBatch, false)).
		Run(context.Background(), []string{"ep-01"})

	assert.True(t, apperrors.IsItemUnavailable(err))
	assert.Equal(t, []string{"ep-01"}, result.Unavailable)
	assert.Equal(t, []EventKind{EventNavigating, EventUnavailable}, events.kinds("ep-01"))
	assert.Equal(t, 0, site.OpenPages())
}

func TestOrchestrator_PageFailureIsFatal(t *testing.T) {
	site := scriptedSite(map[string]browsertest.Item{"ep-01": video("ep-01"), "ep-02": video("ep-02")})
	site.NewPageErr = errors.New("browser has disconnected")

	result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), ModeBatch, true)).
		Run(context.Background(), []string{"ep-01", "ep-02"})

	assert.Equal(t, apperrors.CodeBrowser, apperrors.GetErrorCode(err))
	assert.Equal(t, []string{"ep-01"}, result.Attempted)
}

func TestOrchestrator_SingleModeSaveFailureStopsRun(t *testing.T) {
	failing := video("ep-01")
	failing.SaveErr = errors.New("no space left on device")
	site := scriptedSite(map[string]browsertest.Item{"ep-01": failing, "ep-02": video("ep-02")})

	result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), ModeSingle, true)).
		Run(context.Background(), []string{"ep-01", "ep-02"})

	require.Error(t, err)
	assert.True(t, apperrors.IsPersistError(err))
	assert.Equal(t, []string{"ep-01"}, result.Attempted)
	assert.Equal(t, []string{"ep-01"}, result.Failed)
}

func TestOrchestrator_BatchSaveFailuresReportedAfterBarrier(t *testing.T) {
	dir := t.TempDir()
	failing := video("ep-02")
	failing.SaveErr = errors.New("disk quota exceeded")
	failing.Delay = 10 * time.Millisecond
	site := scriptedSite(map[string]browsertest.Item{"ep-01": video("ep-01"), "ep-02": failing, "ep-03": video("ep-03")})
	events := &eventLog{}

	result, err := NewOrchestrator(site, nil, events, testOptions(dir, ModeBatch, false)).
		Run(context.Background(), []string{"ep-01", "ep-02", "ep-03"})

	require.Error(t, err)
	assert.True(t, apperrors.IsPersistError(err))
	assert.Contains(t, err.Error(), "disk quota exceeded")
	assert.Equal(t, []string{"ep-01", "ep-02", "ep-03"}, result.Attempted)
	assert.Equal(t, []string{"ep-01", "ep-03"}, result.Persisted)
	assert.Equal(t, []string{"ep-02"}, result.Failed)
	assert.Equal(t, []EventKind{EventNavigating, EventPersisting, EventFailed}, events.kinds("ep-02"))
	assert.NoFileExists(t, filepath.Join(dir, "ep-02.mp4"))
}

func TestOrchestrator_BarrierSettlesEveryCompletionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d", "e"}

	for round := 0; round < 10; round++ {
		items := map[string]browsertest.Item{}
		for _, id := range ids {
			item := video(id)
			item.Delay = time.Duration(rng.Intn(30)) * time.Millisecond
			items[id] = item
		}
		site := scriptedSite(items)

		result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), ModeBatch, false)).
			Run(context.Background(), ids)

		require.NoError(t, err)
		require.Len(t, result.Tasks, len(ids))
		for _, task := range result.Tasks {
			assert.True(t, task.Settled(), "round %d: %s not settled", round, task.Identifier)
		}
		assert.ElementsMatch(t, ids, result.Persisted)
	}
}

func TestOrchestrator_ConcurrentSavesKeepTheirOwnContent(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))

	var ids []string
	items := map[string]browsertest.Item{}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("episodio-%02d", i)
		ids = append(ids, id)
		content := make([]byte, 4096+rng.Intn(4096))
		rng.Read(content)
		items[id] = browsertest.Item{
			Filename: id + ".mkv",
			Content:  content,
			Delay:    time.Duration(rng.Intn(40)) * time.Millisecond,
		}
	}
	site := scriptedSite(items)

	_, err := NewOrchestrator(site, nil, nil, testOptions(dir, ModeBatch, false)).
		Run(context.Background(), ids)

	require.NoError(t, err)
	for _, id := range ids {
		data, err := os.ReadFile(filepath.Join(dir, id+".mkv"))
		require.NoError(t, err)
		assert.Equal(t, items[id].Content, data, id)
	}
	assert.Greater(t, site.MaxConcurrentSaves(), 1)
}

func TestOrchestrator_CancelStopsLoopButDrainsSaves(t *testing.T) {
	dir := t.TempDir()
	slow := video("ep-01")
	slow.Delay = 50 * time.Millisecond
	site := scriptedSite(map[string]browsertest.Item{"ep-01": slow, "ep-02": video("ep-02")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	observer := ObserverFunc(func(e Event) {
		if e.Kind == EventPersisting {
			cancel()
		}
	})

	result, err := NewOrchestrator(site, nil, observer, testOptions(dir, ModeBatch, false)).
		Run(ctx, []string{"ep-01", "ep-02"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ep-01"}, result.Attempted)
	assert.Equal(t, []string{"ep-01"}, result.Persisted)
	assert.FileExists(t, filepath.Join(dir, "ep-01.mp4"))
}

func TestOrchestrator_EmptyPending(t *testing.T) {
	site := browsertest.NewSite()

	result, err := NewOrchestrator(site, nil, nil, testOptions(t.TempDir(), ModeBatch, false)).
		Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Attempted)
	assert.Empty(t, result.Tasks)
	assert.Equal(t, 0, site.PagesOpened())
}

func TestOrchestrator_ExtensionFromSuggestedFilename(t *testing.T) {
	dir := t.TempDir()
	site := scriptedSite(map[string]browsertest.Item{
		"ep-01": {Filename: "Naruto 01.MKV", Content: []byte("x")},
		"ep-02": {Filename: "download.php", Content: []byte("y")},
	})
	opts := testOptions(dir, ModeSingle, false)
	opts.DefaultExtension = ".avi"

	_, err := NewOrchestrator(site, nil, nil, opts).Run(context.Background(), []string{"ep-01", "ep-02"})

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ep-01.mkv"))
	assert.FileExists(t, filepath.Join(dir, "ep-02.avi"))
}

func TestOrchestrator_AttachesFilter(t *testing.T) {
	site := scriptedSite(map[string]browsertest.Item{"ep-01": video("ep-01")})
	filter := browser.NewBlocklistFilter([]string{"*popads.net*"})

	_, err := NewOrchestrator(site, filter, nil, testOptions(t.TempDir(), ModeBatch, false)).
		Run(context.Background(), []string{"ep-01"})

	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(site.Blocked()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestDetectExtension(t *testing.T) {
	tests := []struct {
		suggested string
		fallback  string
		expected  string
	}{
		{"episode.mp4", ".mkv", ".mp4"},
		{"Episode 01.MKV", ".mp4", ".mkv"},
		{"video.webm?token=abc", ".mp4", ".webm"},
		{"download", ".mp4", ".mp4"},
		{"archive.zip", "mp4", ".mp4"},
		{"", ".mp4", ".mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.suggested, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectExtension(tt.suggested, tt.fallback))
		})
	}
}

func TestEpisodePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/media", "naruto", "ep-01.mp4"), EpisodePath(filepath.Join("/media", "naruto"), "ep-01", ".mp4"))
}
