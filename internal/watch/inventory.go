// Package watch notices edits to the inventory file made outside the console.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"archon/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// OwnWrites recognises documents the console itself wrote.
// *config.Store implements it.
type OwnWrites interface {
	IsOwnWrite(data []byte) bool
}

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Ignored  int
	Reported int
	Errors   int
	LastPath string
	LastAt   time.Time
}

// InventoryWatcher watches the directory holding the inventory file. Saves
// are written to a temp file and renamed, so watching the file itself would
// lose track of it after the first save.
type InventoryWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	own      OwnWrites
	onChange func(path string)

	debounce time.Duration
	pending  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// Option customises an InventoryWatcher.
type Option func(*InventoryWatcher)

// WithDebounce sets how long the file must be quiet before it is read.
func WithDebounce(d time.Duration) Option {
	return func(w *InventoryWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewInventoryWatcher watches path and calls onChange, from the watcher's
// goroutine, whenever its content changes to something own did not write.
func NewInventoryWatcher(path string, own OwnWrites, onChange func(path string), opts ...Option) (*InventoryWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &InventoryWatcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		own:      own,
		onChange: onChange,
		debounce: 300 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It does not block.
func (w *InventoryWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (w *InventoryWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Stats returns a snapshot of the counters.
func (w *InventoryWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *InventoryWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
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
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-tick.C:
			w.flush()
		}
	}
}

func (w *InventoryWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastPath = event.Name
	w.stats.LastAt = time.Now()
	w.pending = time.Now()
	w.mu.Unlock()
}

// flush reads the file once it has been quiet for the debounce window.
func (w *InventoryWatcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Get(logging.CategoryWatch).Warn("read %s: %v", w.path, err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}
	if err == nil && w.own != nil && w.own.IsOwnWrite(data) {
		w.mu.Lock()
		w.stats.Ignored++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Reported++
	w.mu.Unlock()
	logging.Watch("external change to %s", w.path)
	if w.onChange != nil {
		w.onChange(w.path)
	}
}
