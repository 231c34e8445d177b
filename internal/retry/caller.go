// Package retry provides the retry policy applied around session manager
// calls. Only lock-contention failures are retried: when another process
// holds a session's file lock, waiting and retrying usually succeeds, while
// every other failure is surfaced immediately.
package retry

import (
	"errors"
	"strings"
	"time"

	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/sessionlock"
)

// DefaultMaxAttempts is the default total number of call attempts.
const DefaultMaxAttempts = 3

// DefaultBaseDelay is multiplied by the attempt number for linear backoff.
const DefaultBaseDelay = time.Second

// lockSignatures are matched against failure text when the error chain does
// not expose sessionlock.ErrLockTimeout directly (e.g. a provider-side
// "database is locked" from the session storage).
var lockSignatures = []string{
	"could not acquire session lock",
	"database is locked",
}

// Caller retries lock-contended calls with linearly increasing backoff.
type Caller struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *logging.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewCaller creates a Caller with the given bounds. Non-positive arguments
// fall back to the defaults.
func NewCaller(maxAttempts int, baseDelay time.Duration, logger *logging.Logger) *Caller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Caller{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Logger:      logger.WithComponent("retry"),
		sleep:       time.Sleep,
	}
}

// IsLockContention reports whether err looks like transient session lock
// contention.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sessionlock.ErrLockTimeout) {
		return true
	}
	text := err.Error()
	for _, sig := range lockSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}

// Do invokes fn, retrying on lock contention up to c.MaxAttempts total
// attempts with delay attempt*BaseDelay between tries. Any other failure
// is returned after the first attempt. The zero value of T accompanies a
// non-nil error.
func Do[T any](c *Caller, fn func() (T, error)) (T, error) {
	var zero T
	sleep := c.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsLockContention(err) {
			return zero, err
		}
		lastErr = err
		if attempt < c.MaxAttempts {
			delay := time.Duration(attempt) * c.BaseDelay
			c.Logger.Warn("session locked, retrying",
				"attempt", attempt,
				"max_attempts", c.MaxAttempts,
				"delay", delay.String(),
			)
			sleep(delay)
		}
	}
	return zero, lastErr
}
