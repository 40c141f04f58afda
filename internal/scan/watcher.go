package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/atom/internal/config"
	"github.com/standardbeagle/atom/internal/debug"
)

// FileEventType represents the type of file system event
type FileEventType int

const (
	FileEventCreate FileEventType = iota
	FileEventWrite
	FileEventRemove
	FileEventRename
)

func (t FileEventType) String() string {
	switch t {
	case FileEventCreate:
		return "create"
	case FileEventWrite:
		return "write"
	case FileEventRemove:
		return "remove"
	case FileEventRename:
		return "rename"
	default:
		return fmt.Sprintf("FileEventType(%d)", int(t))
	}
}

// Watcher re-tokenizes files as they change, interning any new tokens.
type Watcher struct {
	watcher   *fsnotify.Watcher
	config    *config.Config
	scanner   *Scanner
	debouncer *eventDebouncer
	root      string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	active    atomic.Bool // events are being processed

	// Callbacks run on the watcher goroutine
	onUpdate func(path string, res FileResult)
	onRemove func(path string)

	statsMu         sync.RWMutex
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
}

// WatchStats contains statistics about file watching operations
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// NewWatcher creates a watcher that feeds changed files through scanner.
func NewWatcher(cfg *config.Config, scanner *Scanner) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:   watcher,
		config:    cfg,
		scanner:   scanner,
		debouncer: newEventDebouncer(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SetCallbacks sets the callbacks for settled file events. Either may be nil.
// Must be called before Start.
func (w *Watcher) SetCallbacks(onUpdate func(path string, res FileResult), onRemove func(path string)) {
	w.onUpdate = onUpdate
	w.onRemove = onRemove
}

// Start adds watches under root and begins processing events.
func (w *Watcher) Start(root string) error {
	if !w.config.Watch.Enabled {
		log.Printf("File watching disabled in configuration")
		return nil
	}

	debug.LogWatch("Starting file watcher for directory: %s\n", root)
	w.root = root

	if err := w.addWatches(root, root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
	}

	w.wg.Add(1)
	go w.processEvents()
	w.active.Store(true)

	debug.LogWatch("File watcher started successfully\n")
	return nil
}

// Stop stops the watcher and waits for its goroutine. Pending debounced
// events are dropped. Stop is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.active.Store(false)
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
		w.debouncer.stop()
		debug.LogWatch("File watcher stopped\n")
	})
	return err
}

// GetStats returns current watch mode statistics
func (w *Watcher) GetStats() WatchStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.active.Load(),
	}
}

// addWatches watches dir and every non-excluded directory below it. Patterns
// are matched relative to root.
func (w *Watcher) addWatches(root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.scanner.ExcludesDir(root, path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
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

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 1)
			log.Printf("File watcher error: %v", err)

		case <-w.debouncer.C():
			w.flush(w.debouncer.drain())
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("received event %v for path %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		// Removed or renamed away
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.scanner.Accepts(w.root, path) {
			w.debouncer.add(path, FileEventRemove)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.scanner.ExcludesDir(w.root, path) {
			if err := w.addWatches(w.root, path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if !w.scanner.Accepts(w.root, path) {
		debug.LogWatch("ignoring file %s (doesn't match patterns)\n", path)
		return
	}

	var eventType FileEventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = FileEventCreate
	case event.Op&fsnotify.Write != 0:
		eventType = FileEventWrite
	case event.Op&fsnotify.Rename != 0:
		eventType = FileEventRename
	default:
		return
	}

	w.debouncer.add(path, eventType)
}

// flush scans every settled path and reports it through the callbacks
func (w *Watcher) flush(events map[string]FileEventType) {
	if len(events) == 0 {
		return
	}
	debug.LogWatch("Processing %d debounced file events\n", len(events))

	for path, eventType := range events {
		if w.ctx.Err() != nil {
			return
		}

		if eventType == FileEventRemove {
			if w.onRemove != nil {
				w.onRemove(path)
			}
			w.incrementStats(1, 0)
			continue
		}

		res, err := w.scanner.ScanFile(path)
		if err != nil {
			debug.LogWatch("failed to rescan %s: %v\n", path, err)
			w.incrementStats(1, 1)
			continue
		}
		if w.onUpdate != nil {
			w.onUpdate(path, res)
		}
		w.incrementStats(1, 0)
	}
}

func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// eventDebouncer collects the latest event per path until no new event has
// arrived for the debounce interval. It is owned by a single goroutine.
type eventDebouncer struct {
	events   map[string]FileEventType
	debounce time.Duration
	timer    *time.Timer
}

func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]FileEventType),
		debounce: debounce,
	}
}

func (d *eventDebouncer) add(path string, eventType FileEventType) {
	// A create followed by writes is still a create
	if prev, ok := d.events[path]; ok && prev == FileEventCreate && eventType == FileEventWrite {
		eventType = FileEventCreate
	}
	d.events[path] = eventType

	if d.timer == nil {
		d.timer = time.NewTimer(d.debounce)
		return
	}
	d.timer.Reset(d.debounce)
}

// C fires once the pending events have settled. It is nil while idle.
func (d *eventDebouncer) C() <-chan time.Time {
	if d.timer == nil || len(d.events) == 0 {
		return nil
	}
	return d.timer.C
}

func (d *eventDebouncer) drain() map[string]FileEventType {
	events := d.events
	d.events = make(map[string]FileEventType)
	return events
}

func (d *eventDebouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
