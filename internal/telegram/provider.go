// Package telegram defines the boundary to the remote Telegram session
// provider: the library that performs authentication, dialog listing and
// message retrieval against an on-disk session file.
//
// The MTProto transport itself is out of scope for this repository. The
// session worker consumes the Provider interface; the embedding application
// supplies a production implementation by setting DefaultFactory, and tests
// and demo mode use the in-memory Fake.
package telegram

import (
	"context"
	"time"
)

// DialogKind classifies a dialog entity.
type DialogKind string

const (
	KindChannel DialogKind = "channel"
	KindGroup   DialogKind = "group"
	KindPrivate DialogKind = "private"
)

// Dialog is one conversation visible to the authenticated account.
type Dialog struct {
	ID   int64
	Name string
	Kind DialogKind
}

// Message is a single message fetched from a dialog.
type Message struct {
	ID       int64
	Date     time.Time
	Text     string
	Views    int
	Forwards int
}

// TermsUpdateKind discriminates TermsUpdate values.
type TermsUpdateKind string

const (
	// TermsNone means no terms-of-service update is pending.
	TermsNone TermsUpdateKind = "none"
	// TermsPending means an update must be accepted or declined.
	TermsPending TermsUpdateKind = "pending"
)

// TermsUpdate describes a pending terms-of-service update. It is passed
// through to the UI unchanged; the UI drives the accept/decline gate.
type TermsUpdate struct {
	Kind    TermsUpdateKind
	ID      string
	Text    string
	Expires time.Time
}

// Provider is the capability set of the remote session provider. Every
// operation is network-bound, fallible, and possibly slow. Implementations
// are driven from exactly one goroutine at a time.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)
	RequestCode(ctx context.Context, phone string) error
	SignIn(ctx context.Context, phone, code string) error
	ListDialogs(ctx context.Context) ([]Dialog, error)
	FetchMessages(ctx context.Context, dialog Dialog, limit int) ([]Message, error)
	TermsUpdate(ctx context.Context) (*TermsUpdate, error)
	AcceptTerms(ctx context.Context, id string) (bool, error)
	DeclineTerms(ctx context.Context, id string) (bool, error)
}

// Credentials identifies the application and account to the provider.
type Credentials struct {
	APIID   string
	APIHash string
	Phone   string
}

// Factory constructs a Provider bound to the session file at sessionPath.
// The provider must persist all connection state under that path so that a
// later process can resume the session.
type Factory func(sessionPath string, creds Credentials) (Provider, error)

// DefaultFactory is the Factory used when no explicit one is configured.
// The embedding build sets it to a production MTProto implementation; it
// stays nil in this repository, where only the fake is available.
var DefaultFactory Factory
