// Package watcher adapts fsnotify into the create/move event stream the
// pipeline consumes. It watches exactly one directory, non-recursively, and
// filters out directory events before they reach the core.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"printdrop/internal/logging"
)

// Kind classifies an event.
type Kind int

const (
	Created Kind = iota
	Moved
)

func (k Kind) String() string {
	if k == Moved {
		return "moved"
	}
	return "created"
}

// Event is one file arrival in the watched directory.
type Event struct {
	Path string
	Kind Kind
	At   time.Time
}

// Watcher delivers file events for a single directory.
type Watcher struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a watcher for dir.
func New(dir string, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:    dir,
		logger: logging.WithComponent(logger, "watcher"),
	}
}

// Start begins watching and returns the event channel. The channel is
// closed when the context is cancelled or the underlying watcher fails.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil, errors.New("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	events := make(chan Event, 64)
	w.wg.Add(1)
	go w.run(runCtx, fsw, events)

	w.logger.Info("watching directory", logging.String("dir", w.dir))
	return events, nil
}

// Stop terminates the watcher and waits for the event channel to close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer w.wg.Done()
	defer close(out)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if mapped, ok := w.mapEvent(event); ok {
				select {
				case out <- mapped:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldErrorHint, "check that the watch directory still exists"),
			)
		}
	}
}

// mapEvent translates a raw fsnotify event into a pipeline event. Creates
// cover both fresh files and files moved into the directory: the inbound
// half of a rename arrives as Create on Linux. Rename events carry the old
// name, which normally no longer resolves and is dropped by the stat filter
// below, so Moved only surfaces when the renamed path still exists.
func (w *Watcher) mapEvent(event fsnotify.Event) (Event, bool) {
	var kind Kind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = Created
	case event.Op.Has(fsnotify.Rename):
		kind = Moved
	default:
		return Event{}, false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Rename events fire for the old name, which is usually gone by
		// now; nothing to process either way.
		return Event{}, false
	}
	if info.IsDir() {
		return Event{}, false
	}

	return Event{Path: event.Name, Kind: kind, At: time.Now()}, true
}
