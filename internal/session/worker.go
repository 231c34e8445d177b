package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/sessionlock"
	"github.com/insightwire/insightwire/internal/telegram"
)

// Worker is the single goroutine that owns the live provider connection.
// It pulls commands off the inbound channel, dispatches them against its
// Handle one at a time, and replies on each command's outbound slot.
//
// The worker never dies from a failed command: dispatch errors and panics
// are absorbed, logged, and turned into sentinel results. Only a stop
// command (or the idle timeout, when configured) ends the loop, and
// teardown always disconnects the handle and releases the session lock.
type Worker struct {
	inbound      <-chan Command
	factory      telegram.Factory
	lockTimeout  time.Duration
	pollInterval time.Duration
	idleTimeout  time.Duration
	logger       *logging.Logger

	handle *Handle
	done   chan struct{}
}

func newWorker(inbound <-chan Command, factory telegram.Factory, lockTimeout, pollInterval, idleTimeout time.Duration, logger *logging.Logger) *Worker {
	return &Worker{
		inbound:      inbound,
		factory:      factory,
		lockTimeout:  lockTimeout,
		pollInterval: pollInterval,
		idleTimeout:  idleTimeout,
		logger:       logger.WithComponent("worker"),
		done:         make(chan struct{}),
	}
}

// Done is closed when the worker goroutine has fully torn down.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// run is the worker loop. It must be started as a goroutine and is the only
// code that ever touches w.handle.
func (w *Worker) run() {
	defer close(w.done)
	defer w.teardown()
	defer w.drain()

	ctx := context.Background()
	idleSince := time.Now()

	for {
		select {
		case cmd, ok := <-w.inbound:
			if !ok {
				return
			}
			res := w.process(ctx, cmd)
			cmd.reply <- res
			if cmd.Kind == CmdStop {
				return
			}
			idleSince = time.Now()

		case <-time.After(w.pollInterval):
			// Sole cooperative yield point; also drives idle shutdown.
			if w.idleTimeout > 0 && time.Since(idleSince) > w.idleTimeout {
				w.logger.Info("worker idle timeout, shutting down",
					"idle", time.Since(idleSince).String())
				return
			}
		}
	}
}

// drain releases callers whose commands were still queued when the loop
// exited. Each gets an errWorkerStopped result so the manager can resubmit
// the command to a fresh worker. Runs before teardown and before done
// closes.
func (w *Worker) drain() {
	for {
		select {
		case cmd, ok := <-w.inbound:
			if !ok {
				return
			}
			cmd.reply <- Result{CommandID: cmd.ID, Err: errWorkerStopped}
		default:
			return
		}
	}
}

// teardown disconnects the handle if connected and releases the lock.
// Runs on every exit path from the loop.
func (w *Worker) teardown() {
	if w.handle == nil {
		return
	}
	ctx := context.Background()
	if err := w.handle.Disconnect(ctx); err != nil {
		w.logger.Error("disconnect during teardown failed", "error", err)
	}
	if lock := w.handle.Lock(); lock.IsHeld() {
		if err := lock.Release(); err != nil {
			w.logger.Error("lock release during teardown failed", "error", err)
		}
	}
	w.handle = nil
}

// process dispatches one command. Panics are converted into failure results
// so a misbehaving handler cannot kill the loop.
func (w *Worker) process(ctx context.Context, cmd Command) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic processing command", "command", string(cmd.Kind), "panic", fmt.Sprint(r))
			res = Result{CommandID: cmd.ID, Value: nil, Err: fmt.Errorf("command %q panicked: %v", cmd.Kind, r)}
		}
	}()

	w.logger.Debug("dispatch", "command", string(cmd.Kind))

	switch cmd.Kind {
	case CmdStop:
		return Result{CommandID: cmd.ID, Value: true}
	case CmdConnect:
		args, _ := cmd.payload.(connectArgs)
		ok, err := w.handleConnect(ctx, args)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdDisconnect:
		ok, err := w.handleDisconnect(ctx)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdIsAuthorized:
		ok, err := w.handleIsAuthorized(ctx)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdSendCode:
		phone, _ := cmd.payload.(string)
		ok, err := w.handleSendCode(ctx, phone)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdSignIn:
		args, _ := cmd.payload.(signInArgs)
		ok, err := w.handleSignIn(ctx, args)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdListChannels:
		channels, err := w.handleListChannels(ctx)
		return Result{CommandID: cmd.ID, Value: channels, Err: err}
	case CmdFetchChannelData:
		args, _ := cmd.payload.(fetchArgs)
		table, err := w.handleFetchChannelData(ctx, args)
		return Result{CommandID: cmd.ID, Value: table, Err: err}
	case CmdTermsUpdate:
		tu, err := w.handleTermsUpdate(ctx)
		return Result{CommandID: cmd.ID, Value: tu, Err: err}
	case CmdAcceptTerms:
		id, _ := cmd.payload.(string)
		ok, err := w.handleAcceptTerms(ctx, id)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	case CmdDeclineTerms:
		id, _ := cmd.payload.(string)
		ok, err := w.handleDeclineTerms(ctx, id)
		return Result{CommandID: cmd.ID, Value: ok, Err: err}
	default:
		w.logger.Warn("unknown command", "command", string(cmd.Kind))
		return Result{CommandID: cmd.ID, Value: nil}
	}
}

// handleConnect creates the storage directory, acquires the session lock,
// constructs the handle, and connects. On any failure the lock is released
// and the result is false.
func (w *Worker) handleConnect(ctx context.Context, args connectArgs) (bool, error) {
	if w.handle != nil {
		// Replace the previous session cleanly.
		if _, err := w.handleDisconnect(ctx); err != nil {
			w.logger.Warn("disconnect before reconnect failed", "error", err)
		}
	}

	if w.factory == nil {
		return false, newCommandError(CmdConnect, errNoFactory)
	}

	if err := os.MkdirAll(filepath.Dir(args.SessionPath), 0755); err != nil {
		w.logger.Error("session directory creation failed", "error", err)
		return false, newCommandError(CmdConnect, err)
	}

	lock := sessionlock.New(args.SessionPath)
	if err := lock.Acquire(w.lockTimeout); err != nil {
		w.logger.Error("session lock acquisition failed", "path", args.SessionPath, "error", err)
		return false, err
	}

	provider, err := w.factory(args.SessionPath, telegram.Credentials{
		APIID:   args.APIID,
		APIHash: args.APIHash,
		Phone:   args.Phone,
	})
	if err != nil {
		_ = lock.Release()
		w.logger.Error("provider construction failed", "error", err)
		return false, newCommandError(CmdConnect, err)
	}

	handle := newHandle(args.SessionPath, provider, lock, w.logger.WithSession(filepath.Base(args.SessionPath)))
	if err := handle.Connect(ctx); err != nil {
		_ = lock.Release()
		return false, err
	}

	w.handle = handle
	w.logger.Info("session connected", "path", args.SessionPath)
	return true, nil
}

// handleDisconnect always releases the lock and clears the handle. With no
// handle it trivially succeeds.
func (w *Worker) handleDisconnect(ctx context.Context) (bool, error) {
	if w.handle == nil {
		return true, nil
	}
	err := w.handle.Disconnect(ctx)
	w.handle = nil
	if err != nil {
		return false, err
	}
	w.logger.Info("session disconnected")
	return true, nil
}

func (w *Worker) handleIsAuthorized(ctx context.Context) (bool, error) {
	if w.handle == nil {
		return false, nil
	}
	return w.handle.IsAuthorized(ctx)
}

func (w *Worker) handleSendCode(ctx context.Context, phone string) (bool, error) {
	if w.handle == nil {
		return false, nil
	}
	if err := w.handle.RequestCode(ctx, phone); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Worker) handleSignIn(ctx context.Context, args signInArgs) (bool, error) {
	if w.handle == nil {
		return false, nil
	}
	if err := w.handle.SignIn(ctx, args.Phone, args.Code); err != nil {
		return false, err
	}
	return true, nil
}

// handleListChannels returns the names of channel-kind dialogs only.
// Without an authorized handle the result is an empty list.
func (w *Worker) handleListChannels(ctx context.Context) ([]string, error) {
	if ok, err := w.handleIsAuthorized(ctx); !ok || err != nil {
		return []string{}, err
	}

	dialogs, err := w.handle.ListDialogs(ctx)
	if err != nil {
		return []string{}, err
	}

	channels := []string{}
	for _, d := range dialogs {
		if d.Kind == telegram.KindChannel {
			channels = append(channels, d.Name)
		}
	}
	return channels, nil
}

// handleFetchChannelData iterates dialogs one at a time, fetching up to
// Limit messages from each requested channel. Channels are deliberately
// processed sequentially to keep the provider connection single-threaded.
func (w *Worker) handleFetchChannelData(ctx context.Context, args fetchArgs) (Table, error) {
	if ok, err := w.handleIsAuthorized(ctx); !ok || err != nil {
		return Table{}, err
	}

	dialogs, err := w.handle.ListDialogs(ctx)
	if err != nil {
		return Table{}, err
	}

	var rows []ChannelRow
	for _, dialog := range dialogs {
		if !slices.Contains(args.Channels, dialog.Name) {
			continue
		}
		// One message request at a time.
		msgs, err := w.handle.FetchMessages(ctx, dialog, args.Limit)
		if err != nil {
			return Table{}, err
		}
		rows = appendMessages(rows, dialog, msgs)
	}
	return Table{Rows: rows}, nil
}

func (w *Worker) handleTermsUpdate(ctx context.Context) (*telegram.TermsUpdate, error) {
	if w.handle == nil {
		return nil, nil
	}
	return w.handle.TermsUpdate(ctx)
}

func (w *Worker) handleAcceptTerms(ctx context.Context, id string) (bool, error) {
	if w.handle == nil {
		return false, nil
	}
	return w.handle.AcceptTerms(ctx, id)
}

func (w *Worker) handleDeclineTerms(ctx context.Context, id string) (bool, error) {
	if w.handle == nil {
		return false, nil
	}
	return w.handle.DeclineTerms(ctx, id)
}
