// Package watch keeps a catalog current while library sources change on
// disk. Changed files are mapped back to the loaded library that owns them,
// the library is harvested again and its new types are added to the catalog.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/debug"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/pkg/logger"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle
const DefaultDebounce = 300 * time.Millisecond

// EventType is the kind of a file system change
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	}
	return "unknown"
}

// ReloadFunc observes the outcome of reloading one library
type ReloadFunc func(name string, report catalog.Report, err error)

// Watcher monitors the search paths of a loader
type Watcher struct {
	fsw       *fsnotify.Watcher
	loader    *library.Loader
	catalog   *catalog.Catalog
	debouncer *eventDebouncer
	log       *logr.Logger
	onReload  ReloadFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once

	statsMu         sync.RWMutex
	eventsProcessed int64
	reloads         int64
	errorCount      int64
	lastEventTime   time.Time
}

type Option func(*Watcher)

// WithDebounce sets the settle time. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debouncer.debounce = d
		}
	}
}

func WithLogger(l *logr.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithOnReload registers a callback run after each library reload
func WithOnReload(fn ReloadFunc) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// New creates a watcher that refreshes cat from the libraries of loader
func New(loader *library.Loader, cat *catalog.Catalog, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:       fsw,
		loader:    loader,
		catalog:   cat,
		debouncer: newEventDebouncer(DefaultDebounce),
		log:       logger.GetNoopLogger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer.flushFn = w.flush
	return w, nil
}

// Start adds watches below every search root and begins processing events.
// Roots that do not exist are skipped.
func (w *Watcher) Start() error {
	roots := w.loader.Resolver().Roots()
	debug.LogWatch("starting watcher on %d roots\n", len(roots))
	for _, root := range roots {
		if err := w.addWatches(root); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.debouncer.run(w.ctx, &w.wg)

	w.log.Info("watching library sources", "roots", len(roots), "debounce", w.debouncer.debounce.String())
	return nil
}

// Stop ends watching. Events still waiting for the debounce are dropped.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.cancel()
		err = w.fsw.Close()
		w.wg.Wait()
		w.log.V(1).Info("watcher stopped")
	})
	return err
}

// WatchList returns the directories currently watched
func (w *Watcher) WatchList() []string {
	return w.fsw.WatchList()
}

func (w *Watcher) addWatches(root string) error {
	if _, err := os.Stat(root); err != nil {
		debug.LogWatch("skipping missing root %s\n", root)
		return nil
	}
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if path != root && w.loader.Resolver().Excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Info("cannot watch directory", "path", path, "error", err.Error())
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 0, 1)
			w.log.Info("watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("event %v for %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.loader.Resolver().Excluded(path) {
			if err := w.addWatches(path); err != nil {
				w.log.Info("cannot watch new directory", "path", path, "error", err.Error())
			}
			// a new library directory can satisfy an import that failed before
			w.debouncer.addEvent(path, EventCreate)
		}
		return
	}
	if !isSource(path) || w.loader.Resolver().Excluded(path) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventCreate
	case event.Op&fsnotify.Write != 0:
		eventType = EventWrite
	case event.Op&fsnotify.Remove != 0:
		eventType = EventRemove
	case event.Op&fsnotify.Rename != 0:
		eventType = EventRename
	default:
		return
	}
	w.debouncer.addEvent(path, eventType)
}

func isSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cs")
}

// flush reloads every library touched by the batch. Paths that belong to
// no loaded library clear the resolver's failed set so the next caching
// pass tries those imports again.
func (w *Watcher) flush(events map[string]EventType) {
	start := time.Now()
	owners := make(map[string]bool)
	unowned := false
	for path := range events {
		if name, ok := w.loader.Owner(path); ok {
			owners[name] = true
		} else {
			unowned = true
		}
	}
	if unowned {
		w.loader.Resolver().ResetFailed()
	}

	for _, name := range sortedNames(owners) {
		if w.ctx.Err() != nil {
			return
		}
		w.reload(name)
	}
	w.incrementStats(int64(len(events)), 0, 0)
	debug.LogWatch("processed %d events in %v\n", len(events), time.Since(start))
}

func (w *Watcher) reload(name string) {
	w.loader.Reload(name)
	lib, err := w.loader.Load(w.ctx, name)
	var report catalog.Report
	if err != nil {
		w.incrementStats(0, 0, 1)
		w.log.Info("library reload failed", "library", name, "error", err.Error())
	} else {
		report = w.catalog.Refresh(lib, w.loader.LoadedPaths())
		w.incrementStats(0, 1, 0)
		w.log.Info("library reloaded", "library", name, "report", report.String())
	}
	if w.onReload != nil {
		w.onReload(name, report, err)
	}
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) incrementStats(events, reloads, errs int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.reloads += reloads
	w.errorCount += errs
	if events > 0 {
		w.lastEventTime = time.Now()
	}
}

// Stats returns the watch counters
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return Stats{
		EventsProcessed: w.eventsProcessed,
		Reloads:         w.reloads,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

// Stats contains watch counters
type Stats struct {
	EventsProcessed int64     `json:"events_processed"`
	Reloads         int64     `json:"reloads"`
	ErrorCount      int64     `json:"error_count"`
	LastEventTime   time.Time `json:"last_event_time"`
	IsActive        bool      `json:"is_active"`
}
