// Package watcher reports changes to the content namespaces so that open
// pages can re-fetch their article and the tool registry can resync.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/logging"
)

// ContentWatcher watches the pages and tools directories of a content root
// with debouncing.
type ContentWatcher struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
}

// ChangeEvent is a debounced change to one content file.
type ChangeEvent struct {
	Type EventType
	// Path is the absolute or root-relative path reported by fsnotify.
	Path string
	// Name is the bare file name, as accepted by the content locator.
	Name      string
	Namespace content.Namespace
	ModTime   time.Time
	Size      int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a changed path should be delivered.
type FileFilter func(path string) bool

// ChangeHandler handles a batch of debounced events.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// New creates a watcher for the namespaces under root. Call Run to start it.
func New(root string, debounce time.Duration, logger logging.Logger) (*ContentWatcher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &ContentWatcher{
		root:      filepath.Clean(root),
		watcher:   fsw,
		debouncer: NewDebouncer(debounce),
		filters:   []FileFilter{HTMLFilter, NoHiddenFilter},
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter on top of the default HTML and hidden-file filters.
func (cw *ContentWatcher) AddFilter(filter FileFilter) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	cw.filters = append(cw.filters, filter)
}

// AddHandler registers a handler for debounced batches.
func (cw *ContentWatcher) AddHandler(handler ChangeHandler) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	cw.handlers = append(cw.handlers, handler)
}

// Run watches until ctx is cancelled, then releases the fsnotify watcher.
// Namespace directories missing at start are skipped; it is an error when
// neither exists.
func (cw *ContentWatcher) Run(ctx context.Context) error {
	defer cw.watcher.Close()

	watched := 0
	for _, ns := range content.Namespaces() {
		dir := filepath.Join(cw.root, string(ns))
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			cw.logger.Warn(ctx, err, "Content namespace not watched", "dir", dir)
			continue
		}
		if err := cw.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no content namespaces found under %s", cw.root)
	}

	cw.logger.Info(ctx, "Watching content", "root", cw.root, "debounce", cw.debouncer.delay.String())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cw.processEvents(ctx)
	}()

	cw.watchLoop(ctx)
	cw.debouncer.Stop()
	wg.Wait()

	return nil
}

func (cw *ContentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleFsnotifyEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (cw *ContentWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	cw.mutex.RLock()
	filters := cw.filters
	cw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	changeEvent := ChangeEvent{
		Type:      eventTypeOf(event.Op),
		Path:      event.Name,
		Name:      filepath.Base(event.Name),
		Namespace: content.Namespace(filepath.Base(filepath.Dir(event.Name))),
	}
	if info, err := os.Stat(event.Name); err == nil {
		changeEvent.ModTime = info.ModTime()
		changeEvent.Size = info.Size()
	}

	cw.debouncer.Add(changeEvent)
}

func eventTypeOf(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (cw *ContentWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-cw.debouncer.Output():
			cw.mutex.RLock()
			handlers := cw.handlers
			cw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					cw.logger.Error(ctx, err, "Content change handler failed", "events", len(events))
				}
			}
		}
	}
}

// HTMLFilter accepts .html and .htm files.
func HTMLFilter(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// NoHiddenFilter rejects dotfiles and editor backup or lock files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") &&
		!strings.HasPrefix(base, "#") &&
		!strings.HasSuffix(base, "~")
}

// Debouncer groups rapid changes and keeps the latest event per path.
type Debouncer struct {
	delay   time.Duration
	output  chan []ChangeEvent
	timer   *time.Timer
	pending map[string]ChangeEvent
	stopped bool
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer that flushes delay after the last event.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		output:  make(chan []ChangeEvent, 10),
		pending: make(map[string]ChangeEvent),
	}
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[event.Path] = event
	d.stopped = false

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// Output delivers batches sorted by path.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// Stop cancels a pending flush and any retry.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
		d.pending = make(map[string]ChangeEvent)
	default:
		// Consumer is behind. Keep the batch and retry after another
		// quiet period; later events for the same paths replace it.
		d.timer = time.AfterFunc(d.delay, d.flush)
	}
}
