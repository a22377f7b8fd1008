// Package watch re-runs a handler whenever a single file changes.
package watch

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mcncl/keycase/internal/errors"
)

// Handler is called after the watched file settles.
type Handler func(path string) error

// Watcher watches one file. The parent directory is watched instead of the
// file itself so editors that replace the file on save are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	runs  int

	// pending counts scheduled and running handler calls.
	pending sync.WaitGroup
}

// New creates a Watcher for path. A nil logger discards log output.
func New(path string, debounce time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		handler:  handler,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
// Handler errors are logged and do not stop the watch. A handler call that
// is already running finishes before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewWatchError("failed to create file watcher", err)
	}
	defer fsWatcher.Close()

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		return errors.NewWatchError("failed to watch '"+dir+"'", err)
	}
	w.logger.Debug("watching", "path", w.path, "debounce", w.debounce)

	defer func() {
		w.stopTimer()
		w.pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Runs returns how many times the handler has been invoked.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// schedule coalesces bursts of events into one handler call.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.pending.Add(1)
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	defer w.pending.Done()

	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	// Call the handler outside the lock.
	if err := w.handler(w.path); err != nil {
		w.logger.Warn("re-run failed", "path", w.path, "error", err)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.timer = nil
}
