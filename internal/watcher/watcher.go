// Package watcher observes the sessions directory for lock file activity,
// so other parts of the app can show which sessions are held by a running
// worker (possibly in another process) without polling the filesystem.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/insightwire/insightwire/internal/logging"
)

// LockState describes one session's lock file.
type LockState struct {
	SessionID string    // lock file name without the .lock suffix
	Path      string    // absolute lock file path
	Since     time.Time // when the lock file appeared (or was first seen)
}

// Watcher tracks .lock files under a sessions directory.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *logging.Logger

	// Map of session ID -> lock state
	locks map[string]LockState

	// Callback for lock set changes
	onChange func([]LockState)

	mu     sync.RWMutex
	stopCh chan struct{}
}

// New creates a watcher over dir, creating the directory if needed. The
// initial lock set is seeded from a directory scan so locks that predate
// the watcher are not missed.
func New(dir string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		watcher: fw,
		logger:  logger.WithComponent("watcher"),
		locks:   make(map[string]LockState),
		stopCh:  make(chan struct{}),
	}
	w.seed()
	return w, nil
}

// SetChangeCallback sets the callback invoked whenever the lock set changes.
func (w *Watcher) SetChangeCallback(cb func([]LockState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// seed loads lock files already present in the directory.
func (w *Watcher) seed() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".lock")
		since := time.Now()
		if info, err := entry.Info(); err == nil {
			since = info.ModTime()
		}
		w.locks[id] = LockState{
			SessionID: id,
			Path:      filepath.Join(w.dir, entry.Name()),
			Since:     since,
		}
	}
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	// Debounce bursts; connect/disconnect cycles touch the same file twice
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]fsnotify.Event)
	var pendingMu sync.Mutex

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".lock") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			pendingMu.Lock()
			pending[event.Name] = event
			pendingMu.Unlock()

			debounceTimer.Reset(50 * time.Millisecond)

		case <-debounceTimer.C:
			pendingMu.Lock()
			events := pending
			pending = make(map[string]fsnotify.Event)
			pendingMu.Unlock()

			for _, event := range events {
				w.handleEvent(event)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	id := strings.TrimSuffix(filepath.Base(event.Name), ".lock")

	w.mu.Lock()
	changed := false
	switch {
	case event.Op&fsnotify.Create != 0:
		if _, ok := w.locks[id]; !ok {
			w.locks[id] = LockState{SessionID: id, Path: event.Name, Since: time.Now()}
			changed = true
			w.logger.Debug("lock appeared", "session", id)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if _, ok := w.locks[id]; ok {
			delete(w.locks, id)
			changed = true
			w.logger.Debug("lock removed", "session", id)
		}
	}
	cb := w.onChange
	snapshot := w.snapshotLocked()
	w.mu.Unlock()

	if changed && cb != nil {
		cb(snapshot)
	}
}

// Locks returns the current lock set, sorted by session ID.
func (w *Watcher) Locks() []LockState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

// Held reports whether the given session currently has a lock file.
func (w *Watcher) Held(sessionID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.locks[sessionID]
	return ok
}

func (w *Watcher) snapshotLocked() []LockState {
	out := make([]LockState, 0, len(w.locks))
	for _, ls := range w.locks {
		out = append(out, ls)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
