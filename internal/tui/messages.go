package tui

import (
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/telegram"
	"github.com/insightwire/insightwire/internal/watcher"
)

// Messages delivered by async commands. Each carries the error from the
// underlying session command so the model can surface it without crashing.

type connectResultMsg struct {
	authorized bool
	err        error
}

type codeSentMsg struct {
	err error
}

type signInResultMsg struct {
	err error
}

type termsResultMsg struct {
	update *telegram.TermsUpdate
	err    error
}

type termsDecisionMsg struct {
	accepted bool
	err      error
}

type channelsMsg struct {
	channels []string
	err      error
}

type fetchResultMsg struct {
	table session.Table
	err   error
}

type savedMsg struct {
	path string
	err  error
}

// locksChangedMsg is pushed by the session directory watcher whenever the
// set of held lock files changes.
type locksChangedMsg struct {
	locks []watcher.LockState
}
