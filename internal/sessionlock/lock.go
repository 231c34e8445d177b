// Package sessionlock provides cross-process mutual exclusion over a
// Telegram session file using flock(2). Each session file gets a companion
// "<path>.lock" file; whichever process holds the flock on it owns the
// session storage.
//
// A Lock is intended to be acquired and released from the single worker
// goroutine that owns the session. It guards against other processes, not
// against concurrent acquisition attempts from within the same process.
package sessionlock

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout is the default bound on lock acquisition.
const DefaultTimeout = 30 * time.Second

// retryInterval is how often Acquire re-attempts a contended lock.
const retryInterval = 100 * time.Millisecond

// ErrLockTimeout is returned when the lock could not be acquired within
// the deadline. The retry layer treats this failure as transient.
var ErrLockTimeout = errors.New("could not acquire session lock")

// Lock is a file lock guarding one session's on-disk storage.
type Lock struct {
	path string
	file *os.File
}

// New creates a Lock for the session stored at sessionPath. The lock file
// is created next to the session file as "<sessionPath>.lock".
func New(sessionPath string) *Lock {
	return &Lock{path: sessionPath + ".lock"}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire obtains the exclusive lock, retrying until timeout elapses.
// A timeout <= 0 uses DefaultTimeout. Returns ErrLockTimeout (wrapped with
// the lock path) if another process holds the lock for the whole window.
func (l *Lock) Acquire(timeout time.Duration) error {
	if l.file != nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if err != syscall.EWOULDBLOCK {
			_ = f.Close()
			return fmt.Errorf("flock: %w", err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
		}
		time.Sleep(retryInterval)
	}
}

// IsHeld reports whether this Lock currently holds the flock.
func (l *Lock) IsHeld() bool {
	return l != nil && l.file != nil
}

// Release drops the lock and closes the lock file. Safe to call when the
// lock is not held, and safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		l.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := l.file.Close()
	l.file = nil
	return err
}
