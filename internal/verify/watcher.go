package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

// Watcher re-verifies a formulation file whenever it changes on disk.
// Editors fire bursts of write events for a single save, so events are
// debounced per path before verification runs.
type Watcher struct {
	verifier *Verifier
	path     string
	fsw      *fsnotify.Watcher
	onReport func(Report)

	debounceMu    sync.Mutex
	debounce      map[string]*time.Timer
	debounceDelay time.Duration

	statsMu sync.Mutex
	stats   WatchStats
}

// WatchStats counts watcher activity.
type WatchStats struct {
	EventsSeen    int
	Verifications int
	LastStatus    Status
	LastRun       time.Time
}

// NewWatcher creates a watcher for one formulation file. onReport is called
// with each verification result, including the initial one.
func NewWatcher(verifier *Verifier, path string, onReport func(Report)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	// Watch the directory, not the file: editors that save via rename
	// replace the inode and a file watch would go stale.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		verifier:      verifier,
		path:          filepath.Clean(path),
		fsw:           fsw,
		onReport:      onReport,
		debounce:      make(map[string]*time.Timer),
		debounceDelay: 300 * time.Millisecond,
	}, nil
}

// Run verifies the file once, then blocks re-verifying on every change
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	logging.Watch("watching %s", w.path)
	w.verifyNow(ctx)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.statsMu.Lock()
			w.stats.EventsSeen++
			w.statsMu.Unlock()
			w.scheduleVerify(ctx)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Watch("watch error: %v", err)
		}
	}
}

// scheduleVerify resets the debounce timer for the watched path.
func (w *Watcher) scheduleVerify(ctx context.Context) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounce[w.path]; ok {
		t.Stop()
	}
	w.debounce[w.path] = time.AfterFunc(w.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.verifyNow(ctx)
	})
}

func (w *Watcher) cancelPending() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	for _, t := range w.debounce {
		t.Stop()
	}
}

func (w *Watcher) verifyNow(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		logging.Watch("read %s: %v", w.path, err)
		return
	}

	cand := formulation.New(string(data), 0)
	report := w.verifier.Verify(ctx, cand)

	w.statsMu.Lock()
	w.stats.Verifications++
	w.stats.LastStatus = report.Status
	w.stats.LastRun = time.Now()
	w.statsMu.Unlock()

	logging.Watch("%s: %s (%d violations)", filepath.Base(w.path), report.Status, len(report.Violations))
	if w.onReport != nil {
		w.onReport(report)
	}
}

// Stats returns a snapshot of watcher counters.
func (w *Watcher) Stats() WatchStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}
