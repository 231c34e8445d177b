package sessionlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	session := filepath.Join(t.TempDir(), "session_123")
	l := New(session)

	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !l.IsHeld() {
		t.Error("IsHeld should be true after Acquire")
	}

	// Lock file should exist next to the session file
	if _, err := os.Stat(session + ".lock"); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if l.IsHeld() {
		t.Error("IsHeld should be false after Release")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "session"))

	// Release without Acquire is a no-op
	if err := l.Release(); err != nil {
		t.Fatalf("Release without Acquire: %v", err)
	}

	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAcquireWhileHeldIsNoOp(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "session"))
	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	// Re-acquiring from the same Lock must not deadlock or error
	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	session := filepath.Join(t.TempDir(), "session")
	l := New(session)

	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// A fresh Lock on the same path must succeed without timing out
	l2 := New(session)
	if err := l2.Acquire(time.Second); err != nil {
		t.Fatalf("re-Acquire after Release: %v", err)
	}
	_ = l2.Release()
}

func TestAcquireTimeout(t *testing.T) {
	// flock is per open file description, so a second Lock in the same
	// process contends with the first just like another process would.
	session := filepath.Join(t.TempDir(), "session")
	l := New(session)
	if err := l.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	l2 := New(session)
	start := time.Now()
	err := l2.Acquire(300 * time.Millisecond)
	if err == nil {
		t.Fatal("Acquire should time out while lock is held")
	}
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("error should wrap ErrLockTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Acquire returned before the deadline: %v", elapsed)
	}
	if l2.IsHeld() {
		t.Error("IsHeld should be false after a timed-out Acquire")
	}
}

func TestPath(t *testing.T) {
	l := New("/tmp/sessions/abc")
	if got, want := l.Path(), "/tmp/sessions/abc.lock"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
