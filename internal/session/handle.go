package session

import (
	"context"

	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/sessionlock"
	"github.com/insightwire/insightwire/internal/telegram"
)

// Handle owns one provider connection and the session lock guarding its
// on-disk state. It is constructed by the worker after the lock has been
// acquired and is only ever touched from the worker goroutine.
//
// Every provider failure is normalized into *CommandExecutionError carrying
// the originating command name.
type Handle struct {
	sessionPath string
	provider    telegram.Provider
	lock        *sessionlock.Lock
	logger      *logging.Logger
}

func newHandle(sessionPath string, provider telegram.Provider, lock *sessionlock.Lock, logger *logging.Logger) *Handle {
	return &Handle{
		sessionPath: sessionPath,
		provider:    provider,
		lock:        lock,
		logger:      logger,
	}
}

// Lock exposes the session lock for teardown paths.
func (h *Handle) Lock() *sessionlock.Lock {
	return h.lock
}

func (h *Handle) Connect(ctx context.Context) error {
	if err := h.provider.Connect(ctx); err != nil {
		h.logger.Error("connect failed", "error", err)
		return newCommandError(CmdConnect, err)
	}
	return nil
}

// Disconnect closes the provider connection and releases the session lock.
// The lock is released even when the provider call fails.
func (h *Handle) Disconnect(ctx context.Context) error {
	err := h.provider.Disconnect(ctx)
	if relErr := h.lock.Release(); relErr != nil {
		h.logger.Error("lock release failed", "error", relErr)
	}
	if err != nil {
		h.logger.Error("disconnect failed", "error", err)
		return newCommandError(CmdDisconnect, err)
	}
	return nil
}

func (h *Handle) IsAuthorized(ctx context.Context) (bool, error) {
	ok, err := h.provider.IsAuthorized(ctx)
	if err != nil {
		h.logger.Error("authorization check failed", "error", err)
		return false, newCommandError(CmdIsAuthorized, err)
	}
	return ok, nil
}

func (h *Handle) RequestCode(ctx context.Context, phone string) error {
	if err := h.provider.RequestCode(ctx, phone); err != nil {
		h.logger.Error("code request failed", "error", err)
		return newCommandError(CmdSendCode, err)
	}
	return nil
}

func (h *Handle) SignIn(ctx context.Context, phone, code string) error {
	if err := h.provider.SignIn(ctx, phone, code); err != nil {
		h.logger.Error("sign in failed", "error", err)
		return newCommandError(CmdSignIn, err)
	}
	return nil
}

func (h *Handle) ListDialogs(ctx context.Context) ([]telegram.Dialog, error) {
	dialogs, err := h.provider.ListDialogs(ctx)
	if err != nil {
		h.logger.Error("dialog listing failed", "error", err)
		return nil, newCommandError(CmdListChannels, err)
	}
	return dialogs, nil
}

func (h *Handle) FetchMessages(ctx context.Context, dialog telegram.Dialog, limit int) ([]telegram.Message, error) {
	msgs, err := h.provider.FetchMessages(ctx, dialog, limit)
	if err != nil {
		h.logger.Error("message fetch failed", "dialog", dialog.Name, "error", err)
		return nil, newCommandError(CmdFetchChannelData, err)
	}
	return msgs, nil
}

func (h *Handle) TermsUpdate(ctx context.Context) (*telegram.TermsUpdate, error) {
	tu, err := h.provider.TermsUpdate(ctx)
	if err != nil {
		h.logger.Error("terms update check failed", "error", err)
		return nil, newCommandError(CmdTermsUpdate, err)
	}
	return tu, nil
}

func (h *Handle) AcceptTerms(ctx context.Context, id string) (bool, error) {
	ok, err := h.provider.AcceptTerms(ctx, id)
	if err != nil {
		h.logger.Error("terms accept failed", "terms_id", id, "error", err)
		return false, newCommandError(CmdAcceptTerms, err)
	}
	return ok, nil
}

func (h *Handle) DeclineTerms(ctx context.Context, id string) (bool, error) {
	ok, err := h.provider.DeclineTerms(ctx, id)
	if err != nil {
		h.logger.Error("terms decline failed", "terms_id", id, "error", err)
		return false, newCommandError(CmdDeclineTerms, err)
	}
	return ok, nil
}
