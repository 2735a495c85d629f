// Package watch observes resources on disk and flags modifications that
// happen while no running task holds the resource's lock. Tasks are expected
// to be the only writers of the resources they lock; a write with no matching
// reservation means something outside the dispatcher is mutating shared
// state. Drift detection is purely advisory observability and never blocks
// admission.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/ledger"
	"github.com/arbiterhq/arbiter/internal/logging"
)

// debounceWindow collects editor write bursts into one observation.
const debounceWindow = 50 * time.Millisecond

// Watcher flags out-of-band writes under a resource root.
type Watcher struct {
	watcher *fsnotify.Watcher
	ledger  *ledger.Ledger
	bus     *event.Bus
	log     *logging.Logger
	root    string

	// Paths to ignore (e.g. .git, editor droppings)
	ignorePaths []string

	mu     sync.Mutex
	drifts map[string]time.Time // relative path -> last out-of-band write

	stopCh chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the structured logger. Defaults to a nop logger.
func WithLogger(log *logging.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithIgnorePaths replaces the default ignore list.
func WithIgnorePaths(paths []string) Option {
	return func(w *Watcher) { w.ignorePaths = paths }
}

// New creates a Watcher over the given resource root. Lock identifiers are
// matched as paths relative to the root. Drift events are published to the
// given bus; a nil bus disables publishing.
func New(root string, l *ledger.Ledger, bus *event.Bus, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		ledger:      l,
		bus:         bus,
		log:         logging.NopLogger(),
		root:        root,
		ignorePaths: []string{".git", ".arbiter", "node_modules", ".DS_Store"},
		drifts:      make(map[string]time.Time),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := w.watchDirRecursive(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// watchDirRecursive adds all subdirectories to the watcher. fsnotify only
// watches directories, not trees.
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		base := filepath.Base(path)
		for _, ignore := range w.ignorePaths {
			if base == ignore {
				return filepath.SkipDir
			}
		}

		if info.IsDir() {
			_ = w.watcher.Add(path)
		}
		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop processes filesystem events, debouncing editor write bursts.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := make(map[string]fsnotify.Event)

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[ev.Name] = ev
			debounceTimer.Reset(debounceWindow)

		case <-debounceTimer.C:
			for _, ev := range pending {
				w.handleFileEvent(ev)
			}
			pending = make(map[string]fsnotify.Event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err.Error())
		}
	}
}

// handleFileEvent records a drift when the written path's lock is not held.
func (w *Watcher) handleFileEvent(ev fsnotify.Event) {
	path := ev.Name

	for _, ignore := range w.ignorePaths {
		if strings.Contains(path, string(filepath.Separator)+ignore+string(filepath.Separator)) ||
			strings.HasSuffix(path, string(filepath.Separator)+ignore) ||
			filepath.Base(path) == ignore {
			return
		}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// New directory: extend the watch, directories are not resources.
		_ = w.watcher.Add(path)
		return
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}

	if _, held := w.ledger.Owner(rel); held {
		return // an admitted task owns this resource
	}

	w.mu.Lock()
	w.drifts[rel] = time.Now()
	w.mu.Unlock()

	w.log.Warn("out-of-band write to unlocked resource", "path", rel)
	if w.bus != nil {
		w.bus.Publish(event.NewDriftDetectedEvent(rel))
	}
}

// Drifts returns the relative paths with recorded out-of-band writes, sorted.
func (w *Watcher) Drifts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.drifts))
	for p := range w.drifts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ClearOldDrifts drops drift records older than maxAge.
func (w *Watcher) ClearOldDrifts(maxAge time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for p, at := range w.drifts {
		if at.Before(cutoff) {
			delete(w.drifts, p)
		}
	}
}
