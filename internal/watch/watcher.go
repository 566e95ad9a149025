// Package watch turns filesystem events in the clip directory into
// debounced catalog refreshes.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"clip-recorder-app/internal/clock"
	"clip-recorder-app/pkg/logger"
)

// DefaultDebounce is the quiet period after the last event before onChange runs
const DefaultDebounce = 250 * time.Millisecond

// DirWatcher watches one flat directory and calls onChange once per burst of events
type DirWatcher struct {
	dir      string
	delay    time.Duration
	clock    clock.Clock
	onChange func()
	watcher  *fsnotify.Watcher
	logger   *logger.Logger

	mu      sync.Mutex
	pending *clock.Timer
	started bool
	closed  bool
	done    chan struct{}
}

// NewDirWatcher creates a watcher for dir; call Start to begin receiving events
func NewDirWatcher(dir string, delay time.Duration, clk clock.Clock, onChange func()) (*DirWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if clk == nil {
		clk = clock.Real()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &DirWatcher{
		dir:      dir,
		delay:    delay,
		clock:    clk,
		onChange: onChange,
		watcher:  watcher,
		done:     make(chan struct{}),
		logger:   logger.NewWithComponent("dir_watcher"),
	}, nil
}

// Start adds the directory to the watch list and starts the event loop
func (w *DirWatcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher is closed")
	}
	w.started = true
	w.mu.Unlock()

	go w.loop()

	w.logger.InfoWithFields("Watching clip directory", map[string]interface{}{
		"dir":      w.dir,
		"debounce": w.delay.String(),
	})
	return nil
}

func (w *DirWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WarnWithError("Directory watch error", err)
		}
	}
}

// handle schedules onChange for events that can change the clip list
func (w *DirWatcher) handle(event fsnotify.Event) {
	if !relevant(event) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = w.clock.AfterFunc(w.delay, w.fire)
}

func (w *DirWatcher) fire() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.mu.Unlock()

	w.logger.Debug("Clip directory changed")
	w.onChange()
}

// relevant drops chmod-only events and hidden files such as in-progress captures
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}

// Close stops the watcher and drops any pending callback
func (w *DirWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}
