package session

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/sessionlock"
	"github.com/insightwire/insightwire/internal/telegram"
)

// inboundBuffer bounds how many commands can be queued ahead of the worker.
// Enqueueing holds the manager mutex, so a full buffer serializes callers
// without breaking FIFO order.
const inboundBuffer = 64

// Config holds construction options for a Manager.
type Config struct {
	// StorageRoot anchors relative session ids: they resolve to
	// <StorageRoot>/sessions/<id>.
	StorageRoot string

	// Factory constructs the provider for each connect. Defaults to
	// telegram.DefaultFactory.
	Factory telegram.Factory

	// LockTimeout bounds session lock acquisition (default 30s).
	LockTimeout time.Duration

	// PollInterval is the worker's cooperative yield interval (default 100ms).
	PollInterval time.Duration

	// StopTimeout bounds the goroutine join in Stop (default 5s).
	StopTimeout time.Duration

	// IdleTimeout stops an abandoned worker after this long with no inbound
	// commands; zero disables. A later call restarts the worker.
	IdleTimeout time.Duration

	// Logger is optional; a no-op logger is used when nil.
	Logger *logging.Logger
}

// Manager is the facade callers use to drive the session. Each method
// enqueues a command and blocks until the worker delivers the paired
// result. Commands are totally ordered: a Connect issued by one caller is
// guaranteed complete before a ListChannels issued by the next executes,
// even though the callers never coordinate.
//
// A Manager owns its queue and worker goroutine exclusively. Construct one
// per logical session owner and pass it by reference; there is no global
// instance.
type Manager struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex // guards worker lifecycle and enqueue order
	inbound chan Command
	worker  *Worker
}

// NewManager creates a Manager. The worker is started lazily on first use.
func NewManager(cfg Config) *Manager {
	if cfg.Factory == nil {
		cfg.Factory = telegram.DefaultFactory
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = sessionlock.DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger.WithComponent("manager"),
	}
}

// execute enqueues a command and blocks until its result arrives. A command
// that lands in a worker already winding down (idle timeout racing the
// enqueue) is resubmitted to a fresh worker, so the restart stays invisible
// to callers.
func (m *Manager) execute(kind CommandKind, payload any) (any, error) {
	for {
		cmd := newCommand(kind, payload)

		m.mu.Lock()
		m.ensureWorkerLocked()
		worker := m.worker
		m.inbound <- cmd
		m.mu.Unlock()

		select {
		case res := <-cmd.reply:
			if errors.Is(res.Err, errWorkerStopped) {
				continue
			}
			return res.Value, res.Err
		case <-worker.Done():
			// The worker exited; its drain replied to anything it still
			// held. A command that slipped past the drain was never run
			// and is safe to resubmit.
			select {
			case res := <-cmd.reply:
				if errors.Is(res.Err, errWorkerStopped) {
					continue
				}
				return res.Value, res.Err
			default:
				continue
			}
		}
	}
}

// ensureWorkerLocked starts the worker goroutine if it is not running.
// A worker that stopped (idle timeout or Stop) is replaced transparently.
func (m *Manager) ensureWorkerLocked() {
	if m.worker != nil {
		select {
		case <-m.worker.Done():
			// Worker exited; fall through and start a fresh one.
		default:
			return
		}
	}

	m.inbound = make(chan Command, inboundBuffer)
	m.worker = newWorker(m.inbound, m.cfg.Factory, m.cfg.LockTimeout,
		m.cfg.PollInterval, m.cfg.IdleTimeout, m.cfg.Logger)
	go m.worker.run()
	m.logger.Info("worker started")
}

// Stop shuts the worker down. The stop command is ordered like any other,
// so commands already queued complete first. Stop is idempotent and returns
// ErrStopTimeout if the goroutine does not exit within the join timeout.
func (m *Manager) Stop() error {
	m.mu.Lock()
	worker := m.worker
	if worker == nil {
		m.mu.Unlock()
		return nil
	}
	select {
	case <-worker.Done():
		m.worker = nil
		m.mu.Unlock()
		return nil
	default:
	}

	cmd := newCommand(CmdStop, nil)
	m.inbound <- cmd
	// Detach the retiring worker before releasing the mutex: anything
	// enqueued from here on gets a fresh worker instead of landing in a
	// queue that is about to drain.
	m.worker = nil
	m.inbound = nil
	m.mu.Unlock()

	select {
	case <-worker.Done():
	case <-time.After(m.cfg.StopTimeout):
		m.logger.Error("worker did not stop in time")
		return ErrStopTimeout
	}
	m.logger.Info("worker stopped")
	return nil
}

// resolveSessionPath canonicalizes a relative session id to an absolute
// path under <StorageRoot>/sessions. Absolute paths pass through unchanged.
func (m *Manager) resolveSessionPath(sessionID string) string {
	if filepath.IsAbs(sessionID) {
		return sessionID
	}
	root := m.cfg.StorageRoot
	path := filepath.Join(root, "sessions", sessionID)
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Connect opens the session stored under sessionID, acquiring its lock.
// Returns false when the lock or the provider connection could not be
// obtained; the error distinguishes lock contention for the retry layer.
func (m *Manager) Connect(sessionID, apiID, apiHash, phone string) (bool, error) {
	v, err := m.execute(CmdConnect, connectArgs{
		SessionPath: m.resolveSessionPath(sessionID),
		APIID:       apiID,
		APIHash:     apiHash,
		Phone:       phone,
	})
	return asBool(v), err
}

// IsAuthorized reports whether the connected session is signed in.
func (m *Manager) IsAuthorized() (bool, error) {
	v, err := m.execute(CmdIsAuthorized, nil)
	return asBool(v), err
}

// RequestCode asks the provider to send a verification code to phone.
func (m *Manager) RequestCode(phone string) (bool, error) {
	v, err := m.execute(CmdSendCode, phone)
	return asBool(v), err
}

// SignIn completes authentication with the code sent to phone.
func (m *Manager) SignIn(phone, code string) (bool, error) {
	v, err := m.execute(CmdSignIn, signInArgs{Phone: phone, Code: code})
	return asBool(v), err
}

// ListChannels returns the names of channel-kind dialogs. Empty when the
// session is missing or unauthorized.
func (m *Manager) ListChannels() ([]string, error) {
	v, err := m.execute(CmdListChannels, nil)
	channels, _ := v.([]string)
	if channels == nil {
		channels = []string{}
	}
	return channels, err
}

// FetchChannelData scrapes up to limit messages from each named channel.
// Empty or whitespace-only messages are dropped.
func (m *Manager) FetchChannelData(channels []string, limit int) (Table, error) {
	v, err := m.execute(CmdFetchChannelData, fetchArgs{Channels: channels, Limit: limit})
	table, _ := v.(Table)
	return table, err
}

// TermsUpdate returns the pending terms-of-service update, or a value with
// Kind none. Nil when no session is connected.
func (m *Manager) TermsUpdate() (*telegram.TermsUpdate, error) {
	v, err := m.execute(CmdTermsUpdate, nil)
	tu, _ := v.(*telegram.TermsUpdate)
	return tu, err
}

// AcceptTerms accepts the pending terms-of-service update by id.
func (m *Manager) AcceptTerms(id string) (bool, error) {
	v, err := m.execute(CmdAcceptTerms, id)
	return asBool(v), err
}

// DeclineTerms declines the pending terms-of-service update by id.
func (m *Manager) DeclineTerms(id string) (bool, error) {
	v, err := m.execute(CmdDeclineTerms, id)
	return asBool(v), err
}

// Disconnect closes the session and releases its lock. True when no
// session was connected.
func (m *Manager) Disconnect() (bool, error) {
	v, err := m.execute(CmdDisconnect, nil)
	return asBool(v), err
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
