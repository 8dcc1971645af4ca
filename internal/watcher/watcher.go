// Package watcher turns raw filesystem events on the watched folder into
// debounced dispatches of candidate document paths. A burst of events for
// one path collapses into a single dispatch after the path has been quiet
// for the debounce window.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"parafile/internal/extract"
	"parafile/internal/logging"
)

// tempSuffixes are in-progress artifacts left by download managers and
// office suites; the final rename fires its own event.
var tempSuffixes = []string{".part", ".tmp", ".crdownload"}

// Dispatch receives a path once its debounce window has elapsed.
type Dispatch func(path string)

// Watcher monitors the configured folder for new or rewritten documents.
type Watcher struct {
	dir      string
	debounce time.Duration
	dispatch Dispatch
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	timers  map[string]*time.Timer
	closed  bool
	started bool

	done chan struct{}
}

// New constructs a Watcher over dir. dispatch is invoked from timer
// goroutines and must not block for long; the pipeline intake only enqueues.
func New(dir string, debounce time.Duration, dispatch Dispatch, logger *slog.Logger) (*Watcher, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("watcher: dispatch callback required")
	}
	if debounce <= 0 {
		debounce = 750 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		dispatch: dispatch,
		logger:   logger,
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watched folder and begins consuming events. The
// watch is non-recursive, so files our own mover places into category
// subfolders never re-trigger processing.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching folder", logging.String("dir", w.dir))

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.loop(ctx)
	return nil
}

// Close stops event consumption and cancels pending debounce timers.
// Timers that already fired may still invoke dispatch concurrently.
// Safe after a failed Start: the loop only runs once Start succeeds, so
// Close must not wait for it otherwise.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
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
			w.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name
	if !Eligible(path) {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		// Renames fire for the old name too; a vanished path has nothing
		// to dispatch.
		return
	}

	w.logger.Debug("document event",
		logging.String(logging.FieldSourcePath, path),
		logging.String(logging.FieldEventType, event.Op.String()))
	w.schedule(path)
}

// schedule resets the per-path debounce timer, so only the last event of a
// burst survives to dispatch.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.dispatch(path)
	})
}

// Eligible reports whether a path looks like a document worth processing:
// supported extension, not hidden, not a temp artifact.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return extract.Supported(filepath.Ext(lower))
}
