package telegram

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConnected is returned by the fake when an operation is attempted
// before Connect.
var ErrNotConnected = errors.New("telegram: not connected")

// Fake is an in-memory Provider used by tests and by demo mode. It holds a
// fixed dialog set, accepts any verification code unless SignInCode is set,
// and supports per-operation error injection.
//
// Fake is not safe for concurrent use; like a real provider it expects to
// be driven from one goroutine, which is exactly what the session worker
// guarantees.
type Fake struct {
	Dialogs    map[string][]Message // dialog name -> messages, newest first
	Order      []Dialog             // dialog listing order
	Authorized bool                 // already signed in when the session connects
	SignInCode string               // expected code; empty accepts anything
	Terms      *TermsUpdate         // pending terms update, nil for none

	ConnectErr error // injected failures
	ListErr    error
	FetchErr   error

	Connected    bool
	ConnectCalls int
	FetchCalls   int
	codeSent     string
}

// NewFake returns an empty fake provider.
func NewFake() *Fake {
	return &Fake{Dialogs: make(map[string][]Message)}
}

// AddDialog seeds a dialog and its messages. Messages are stored in the
// order given.
func (f *Fake) AddDialog(d Dialog, msgs ...Message) *Fake {
	f.Order = append(f.Order, d)
	f.Dialogs[d.Name] = msgs
	return f
}

// FakeFactory returns a Factory that hands out the given fake regardless of
// session path. Useful for wiring the fake through manager construction.
func FakeFactory(f *Fake) Factory {
	return func(sessionPath string, creds Credentials) (Provider, error) {
		return f, nil
	}
}

func (f *Fake) Connect(ctx context.Context) error {
	f.ConnectCalls++
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

func (f *Fake) Disconnect(ctx context.Context) error {
	f.Connected = false
	return nil
}

func (f *Fake) IsAuthorized(ctx context.Context) (bool, error) {
	if !f.Connected {
		return false, ErrNotConnected
	}
	return f.Authorized, nil
}

func (f *Fake) RequestCode(ctx context.Context, phone string) error {
	if !f.Connected {
		return ErrNotConnected
	}
	f.codeSent = phone
	return nil
}

func (f *Fake) SignIn(ctx context.Context, phone, code string) error {
	if !f.Connected {
		return ErrNotConnected
	}
	if f.SignInCode != "" && code != f.SignInCode {
		return fmt.Errorf("invalid verification code for %s", phone)
	}
	f.Authorized = true
	return nil
}

func (f *Fake) ListDialogs(ctx context.Context) ([]Dialog, error) {
	if !f.Connected {
		return nil, ErrNotConnected
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]Dialog, len(f.Order))
	copy(out, f.Order)
	return out, nil
}

func (f *Fake) FetchMessages(ctx context.Context, dialog Dialog, limit int) ([]Message, error) {
	if !f.Connected {
		return nil, ErrNotConnected
	}
	f.FetchCalls++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	msgs := f.Dialogs[dialog.Name]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *Fake) TermsUpdate(ctx context.Context) (*TermsUpdate, error) {
	if !f.Connected {
		return nil, ErrNotConnected
	}
	if f.Terms == nil {
		return &TermsUpdate{Kind: TermsNone}, nil
	}
	cp := *f.Terms
	return &cp, nil
}

func (f *Fake) AcceptTerms(ctx context.Context, id string) (bool, error) {
	if !f.Connected {
		return false, ErrNotConnected
	}
	if f.Terms == nil || f.Terms.ID != id {
		return false, fmt.Errorf("unknown terms id %q", id)
	}
	f.Terms = nil
	return true, nil
}

func (f *Fake) DeclineTerms(ctx context.Context, id string) (bool, error) {
	if !f.Connected {
		return false, ErrNotConnected
	}
	f.Terms = nil
	return true, nil
}
