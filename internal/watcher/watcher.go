// Package watcher invalidates theme caches when local theme files
// change during development, and fans the change out to live-reload
// subscribers.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fasttify/liquidforge/internal/logging"
)

const defaultDebounce = 150 * time.Millisecond

// Invalidator drops cached theme state for a store. theme.Loader
// satisfies it.
type Invalidator interface {
	InvalidateStore(storeID string)
}

// ThemeWatcher watches a theme directory and, after a debounce window,
// invalidates the store's template caches and notifies subscribers
// with the changed paths.
type ThemeWatcher struct {
	watcher  *fsnotify.Watcher
	themes   Invalidator
	storeID  string
	root     string
	debounce time.Duration
	log      logging.Logger

	mu          sync.Mutex
	subscribers []chan []string
	closed      bool
}

// New creates a watcher over a theme directory for one store.
func New(root, storeID string, themes Invalidator, log logging.Logger) (*ThemeWatcher, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	tw := &ThemeWatcher{
		watcher:  fw,
		themes:   themes,
		storeID:  storeID,
		root:     root,
		debounce: defaultDebounce,
		log:      log.WithComponent("watcher"),
	}
	if err := tw.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return tw, nil
}

// addRecursive registers the root and every subdirectory, since
// fsnotify watches are not recursive.
func (tw *ThemeWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return tw.watcher.Add(path)
		}
		return nil
	})
}

// Subscribe returns a channel receiving batches of changed template
// paths (relative to the theme root). The channel closes when the
// watcher stops.
func (tw *ThemeWatcher) Subscribe() <-chan []string {
	ch := make(chan []string, 4)
	tw.mu.Lock()
	tw.subscribers = append(tw.subscribers, ch)
	tw.mu.Unlock()
	return ch
}

// Run processes file events until the context is cancelled. Rapid
// bursts of events (editor save, git checkout) collapse into one
// invalidation.
func (tw *ThemeWatcher) Run(ctx context.Context) {
	defer tw.close()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]bool)
	)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if !tw.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = tw.watcher.Add(event.Name)
					continue
				}
			}
			rel, err := filepath.Rel(tw.root, event.Name)
			if err != nil {
				rel = event.Name
			}
			pending[filepath.ToSlash(rel)] = true
			if timer == nil {
				timer = time.NewTimer(tw.debounce)
				timerC = timer.C
			} else {
				timer.Reset(tw.debounce)
			}

		case <-timerC:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			pending = make(map[string]bool)
			timer = nil
			timerC = nil
			tw.flush(ctx, changed)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.log.Warn(ctx, err, "file watcher error")
		}
	}
}

// relevant keeps only theme file changes worth an invalidation.
func (tw *ThemeWatcher) relevant(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Chmod) && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext == ".liquid" || ext == ".json" {
		return true
	}
	// Directory creates come through without an extension.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func (tw *ThemeWatcher) flush(ctx context.Context, changed []string) {
	tw.log.Info(ctx, "theme files changed, invalidating caches",
		"store_id", tw.storeID, "files", len(changed))
	tw.themes.InvalidateStore(tw.storeID)

	tw.mu.Lock()
	subs := append([]chan []string(nil), tw.subscribers...)
	tw.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- changed:
		default:
			// Slow subscriber; it will catch the next batch.
		}
	}
}

func (tw *ThemeWatcher) close() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return
	}
	tw.closed = true
	tw.watcher.Close()
	for _, ch := range tw.subscribers {
		close(ch)
	}
}
