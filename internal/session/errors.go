package session

import (
	"errors"
	"fmt"
)

// ErrStopTimeout is returned by Manager.Stop when the worker goroutine does
// not exit within the configured join timeout.
var ErrStopTimeout = errors.New("session worker did not stop in time")

// errNoFactory is reported when a connect is attempted without a provider
// factory configured (neither Config.Factory nor telegram.DefaultFactory).
var errNoFactory = errors.New("no telegram provider factory configured")

// errWorkerStopped marks a result for a command a retiring worker drained
// without running. The manager resubmits such commands to a fresh worker;
// callers never see this error.
var errWorkerStopped = errors.New("session worker stopped before the command ran")

// CommandExecutionError wraps a provider-level failure with the name of the
// command that triggered it. Every failure crossing the Handle boundary is
// normalized into this type.
type CommandExecutionError struct {
	Command CommandKind
	Err     error
}

func (e *CommandExecutionError) Error() string {
	return fmt.Sprintf("executing command %q: %v", e.Command, e.Err)
}

func (e *CommandExecutionError) Unwrap() error {
	return e.Err
}

func newCommandError(kind CommandKind, err error) error {
	if err == nil {
		return nil
	}
	return &CommandExecutionError{Command: kind, Err: err}
}
