// Package watch monitors a directory of plan JSON files and checks every
// settled write against the rejected-plan store.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/memory"
	"dejavu/internal/plan"

	"github.com/fsnotify/fsnotify"
)

// MatchHandler receives the outcome of a plan check. It runs for every
// successfully decoded plan; matches is empty when nothing in the store
// clears the threshold.
type MatchHandler func(path string, p *plan.Plan, fp plan.Fingerprint, matches []memory.Match)

// PlanWatcher watches a directory for *.json plan files and fingerprints
// each one after its writes settle. Events are debounced so editors that
// save in bursts trigger a single check.
type PlanWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	store       memory.Store
	dir         string
	threshold   float64
	handler     MatchHandler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for status reporting and debugging.
type WatcherStats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	PlansChecked  int
	MatchesFound  int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// NewPlanWatcher creates a watcher over dir. The handler may be nil, in
// which case check results are only logged.
func NewPlanWatcher(dir string, store memory.Store, threshold float64, handler MatchHandler) (*PlanWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	pw := &PlanWatcher{
		watcher:     watcher,
		store:       store,
		dir:         dir,
		threshold:   threshold,
		handler:     handler,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	return pw, nil
}

// SetDebounce overrides the settle window. Must be called before Start.
func (pw *PlanWatcher) SetDebounce(d time.Duration) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.debounceDur = d
}

// Start begins watching the plan directory for changes.
// This method is non-blocking; it starts the watcher in a goroutine.
// A stopped watcher may be started again: each cycle gets fresh
// lifecycle channels and, when Stop closed the previous one, a fresh
// fsnotify watcher.
func (pw *PlanWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return nil // Already running
	}
	if pw.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			pw.mu.Unlock()
			return err
		}
		pw.watcher = watcher
	}
	// The previous cycle closed both channels; run would trip over them.
	pw.stopCh = make(chan struct{})
	pw.doneCh = make(chan struct{})
	watcher, stopCh, doneCh := pw.watcher, pw.stopCh, pw.doneCh
	pw.running = true
	pw.mu.Unlock()

	// Ensure the plan directory exists
	if err := os.MkdirAll(pw.dir, 0755); err != nil {
		logging.WatchWarn("PlanWatcher: failed to create plan dir %s: %v (continuing anyway)", pw.dir, err)
		// Continue anyway - directory might be created later
	}

	if err := watcher.Add(pw.dir); err != nil {
		// Directory may not exist yet - that's OK, we'll try again
		logging.WatchWarn("PlanWatcher: initial watch failed (dir may not exist): %v", err)
	} else {
		logging.Watch("PlanWatcher: watching directory: %s", pw.dir)
	}

	go pw.run(ctx, watcher, stopCh, doneCh)

	return nil
}

// Stop stops the watcher and waits for cleanup. The watcher may be
// started again afterwards.
func (pw *PlanWatcher) Stop() {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return
	}
	pw.running = false
	stopCh, doneCh := pw.stopCh, pw.doneCh
	pw.mu.Unlock()

	close(stopCh)
	<-doneCh

	pw.mu.Lock()
	watcher := pw.watcher
	pw.watcher = nil
	pw.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logging.WatchError("PlanWatcher: error closing watcher: %v", err)
		}
	}

	stats := pw.GetStats()
	logging.Get(logging.CategoryWatch).StructuredLog("info", "PlanWatcher stopped", map[string]interface{}{
		"plans_checked": stats.PlansChecked,
		"matches_found": stats.MatchesFound,
		"errors":        stats.Errors,
	})
}

// run is the main event loop for the watcher. The fsnotify watcher and
// lifecycle channels belong to a single Start/Stop cycle.
func (pw *PlanWatcher) run(ctx context.Context, watcher *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	// Debounce timer for batching rapid changes
	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("PlanWatcher: context cancelled")
			return

		case <-stopCh:
			logging.Watch("PlanWatcher: stop signal received")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				logging.Watch("PlanWatcher: event channel closed")
				return
			}
			pw.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				logging.Watch("PlanWatcher: error channel closed")
				return
			}
			logging.WatchError("PlanWatcher error: %v", err)
			pw.mu.Lock()
			pw.stats.Errors++
			pw.mu.Unlock()

		case <-debounceTicker.C:
			pw.processDebouncedEvents()
		}
	}
}

// handleEvent processes a single filesystem event.
func (pw *PlanWatcher) handleEvent(event fsnotify.Event) {
	// Only care about .json files
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return // Ignore chmod, etc.
	}

	logging.WatchDebug("PlanWatcher: %s event for %s", eventType, event.Name)

	pw.mu.Lock()
	pw.stats.LastEventTime = time.Now()
	pw.stats.LastEventPath = event.Name
	pw.stats.LastEventType = eventType

	switch eventType {
	case "create":
		pw.stats.FilesCreated++
	case "modify":
		pw.stats.FilesModified++
	case "delete", "rename":
		pw.stats.FilesDeleted++
		// A removed file has nothing left to check.
		delete(pw.debounceMap, event.Name)
		pw.mu.Unlock()
		return
	}

	// Debounce: record the event for later processing
	pw.debounceMap[event.Name] = time.Now()
	pw.mu.Unlock()
}

// processDebouncedEvents checks files whose events have settled past the
// debounce window.
func (pw *PlanWatcher) processDebouncedEvents() {
	pw.mu.Lock()
	now := time.Now()
	toProcess := make([]string, 0)

	for path, eventTime := range pw.debounceMap {
		if now.Sub(eventTime) >= pw.debounceDur {
			toProcess = append(toProcess, path)
			delete(pw.debounceMap, path)
		}
	}
	pw.mu.Unlock()

	for _, path := range toProcess {
		pw.checkPlanFile(path)
	}
}

// checkPlanFile decodes a plan file, fingerprints it, and searches the
// store for near-duplicates.
func (pw *PlanWatcher) checkPlanFile(path string) {
	logging.Watch("PlanWatcher: checking plan file: %s", path)
	timer := logging.StartTimer(logging.CategoryWatch, "plan check")
	defer timer.StopWithThreshold(time.Second)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.WatchDebug("PlanWatcher: file deleted, skipping check: %s", path)
			return
		}
		logging.WatchError("PlanWatcher: failed to read %s: %v", path, err)
		pw.recordError()
		return
	}

	p, err := plan.Decode(data)
	if err != nil {
		logging.WatchWarn("PlanWatcher: not a valid plan document %s: %v", path, err)
		pw.recordError()
		return
	}

	fp, err := p.Fingerprint()
	if err != nil {
		logging.WatchWarn("PlanWatcher: fingerprint failed for %s: %v", path, err)
		pw.recordError()
		return
	}

	matches, err := memory.FindSimilar(fp, pw.store.Records(), pw.threshold)
	if err != nil {
		logging.WatchError("PlanWatcher: search failed for %s: %v", path, err)
		pw.recordError()
		return
	}

	pw.mu.Lock()
	pw.stats.PlansChecked++
	pw.stats.MatchesFound += len(matches)
	handler := pw.handler
	pw.mu.Unlock()

	if len(matches) > 0 {
		logging.WatchWarn("PlanWatcher: %s resembles %d rejected plan(s), best score %.4f",
			filepath.Base(path), len(matches), matches[0].Score)
	} else {
		logging.WatchDebug("PlanWatcher: %s has no rejected look-alikes", filepath.Base(path))
	}

	if handler != nil {
		handler(path, p, fp, matches)
	}
}

// CheckAll sweeps the watched directory once, checking every *.json file.
// Useful at startup to cover plans written before the watcher came up.
func (pw *PlanWatcher) CheckAll() error {
	logging.Watch("PlanWatcher: manual sweep triggered")
	timer := logging.StartTimer(logging.CategoryWatch, "CheckAll sweep")
	defer timer.StopWithInfo()

	entries, err := os.ReadDir(pw.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.WatchDebug("PlanWatcher: plan dir does not exist: %s", pw.dir)
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		pw.checkPlanFile(filepath.Join(pw.dir, entry.Name()))
	}

	return nil
}

func (pw *PlanWatcher) recordError() {
	pw.mu.Lock()
	pw.stats.Errors++
	pw.mu.Unlock()
}

// GetStats returns the current watcher statistics.
func (pw *PlanWatcher) GetStats() WatcherStats {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.stats
}

// ResetStats resets the watcher statistics.
func (pw *PlanWatcher) ResetStats() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.stats = WatcherStats{}
}

// IsWatching returns true if the watcher is currently running.
func (pw *PlanWatcher) IsWatching() bool {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.running
}

// WatchedDirs returns the directories being watched. A stopped watcher
// watches nothing.
func (pw *PlanWatcher) WatchedDirs() []string {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	if pw.watcher == nil {
		return nil
	}
	return pw.watcher.WatchList()
}
