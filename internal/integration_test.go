// Package internal contains integration tests that verify the packages work
// together: the session manager, the lock discipline, the retry layer, and
// the storage watcher.
package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/insightwire/insightwire/internal/retry"
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/sessionlock"
	"github.com/insightwire/insightwire/internal/telegram"
	"github.com/insightwire/insightwire/internal/watcher"
)

func newFakeProvider() *telegram.Fake {
	f := telegram.NewFake()
	f.Authorized = true
	f.AddDialog(telegram.Dialog{ID: 1, Name: "wire", Kind: telegram.KindChannel},
		telegram.Message{ID: 1, Date: time.Now(), Text: "integration", Views: 1})
	return f
}

// TestLockContentionSurfacesThroughRetry holds a session lock out-of-band and
// verifies that a manager connecting to the same session retries on the lock
// signature and eventually gives up with ErrLockTimeout.
func TestLockContentionSurfacesThroughRetry(t *testing.T) {
	root := t.TempDir()
	sessionPath := filepath.Join(root, "sessions", "contended")

	// Hold the lock the way a second process would; that process's worker
	// would already have created the sessions directory.
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0755); err != nil {
		t.Fatalf("mkdir sessions: %v", err)
	}
	holder := sessionlock.New(sessionPath)
	if err := holder.Acquire(time.Second); err != nil {
		t.Fatalf("holder acquire: %v", err)
	}
	defer holder.Release()

	mgr := session.NewManager(session.Config{
		StorageRoot:  root,
		Factory:      telegram.FakeFactory(newFakeProvider()),
		LockTimeout:  100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	defer mgr.Stop()

	attempts := 0
	caller := retry.NewCaller(2, time.Millisecond, nil)
	_, err := retry.Do(caller, func() (bool, error) {
		attempts++
		return mgr.Connect("contended", "1", "a", "+100")
	})
	if err == nil {
		t.Fatal("connect should fail while the lock is held elsewhere")
	}
	if !errors.Is(err, sessionlock.ErrLockTimeout) {
		t.Errorf("error should unwrap to the lock timeout, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (lock contention is retried)", attempts)
	}

	// Once the holder lets go the same call succeeds
	if err := holder.Release(); err != nil {
		t.Fatalf("holder release: %v", err)
	}
	ok, err := mgr.Connect("contended", "1", "a", "+100")
	if !ok || err != nil {
		t.Fatalf("connect after release = %v, %v", ok, err)
	}
}

// TestWatcherObservesWorkerLocks checks that lock files created and removed
// by the session worker show up in the storage watcher.
func TestWatcherObservesWorkerLocks(t *testing.T) {
	root := t.TempDir()
	sessionsDir := filepath.Join(root, "sessions")

	w, err := watcher.New(sessionsDir, nil)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Stop()
	w.Start()

	mgr := session.NewManager(session.Config{
		StorageRoot:  root,
		Factory:      telegram.FakeFactory(newFakeProvider()),
		PollInterval: 10 * time.Millisecond,
	})
	defer mgr.Stop()

	if _, err := mgr.Connect("watched", "1", "a", "+100"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, func() bool { return w.Held("watched") }, "watcher missed the worker's lock")

	if _, err := mgr.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	// Disconnect releases the flock but leaves the file; the hold is what
	// matters for exclusion, so verify by reacquiring out-of-band.
	probe := sessionlock.New(filepath.Join(sessionsDir, "watched"))
	if err := probe.Acquire(time.Second); err != nil {
		t.Fatalf("lock should be free after disconnect: %v", err)
	}
	_ = probe.Release()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
