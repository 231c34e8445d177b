package session

import (
	"github.com/google/uuid"
)

// CommandKind discriminates the unit of work submitted to the worker.
type CommandKind string

const (
	CmdConnect          CommandKind = "connect"
	CmdDisconnect       CommandKind = "disconnect"
	CmdIsAuthorized     CommandKind = "is_authorized"
	CmdSendCode         CommandKind = "send_code"
	CmdSignIn           CommandKind = "sign_in"
	CmdListChannels     CommandKind = "list_channels"
	CmdFetchChannelData CommandKind = "fetch_channel_data"
	CmdTermsUpdate      CommandKind = "terms_update"
	CmdAcceptTerms      CommandKind = "accept_terms"
	CmdDeclineTerms     CommandKind = "decline_terms"
	CmdStop             CommandKind = "stop"
)

// Command is an immutable request consumed exactly once by the worker.
// The reply channel is the command's paired outbound slot: the worker
// delivers exactly one Result on it.
type Command struct {
	ID      uuid.UUID
	Kind    CommandKind
	payload any
	reply   chan Result
}

// Result is the outcome of exactly one Command. Value always holds a usable
// sentinel (false, empty list, empty table, nil terms) even when Err is set,
// so callers never need to branch on Err to render something.
type Result struct {
	CommandID uuid.UUID
	Value     any
	Err       error
}

// Kind-specific payloads. Constructed by the Manager, read by the worker.

type connectArgs struct {
	SessionPath string
	APIID       string
	APIHash     string
	Phone       string
}

type signInArgs struct {
	Phone string
	Code  string
}

type fetchArgs struct {
	Channels []string
	Limit    int
}

func newCommand(kind CommandKind, payload any) Command {
	return Command{
		ID:      uuid.New(),
		Kind:    kind,
		payload: payload,
		reply:   make(chan Result, 1),
	}
}
