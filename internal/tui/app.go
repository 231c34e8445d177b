package tui

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/watcher"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	manager *session.Manager
	cfg     *config.Config
	logger  *logging.Logger
}

// New creates a new TUI application
func New(mgr *session.Manager, cfg *config.Config, logger *logging.Logger) *App {
	return &App{
		model:   NewModel(mgr, cfg, logger),
		manager: mgr,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run starts the TUI application
func (a *App) Run() error {
	// The worker holds the session lock; make sure it always winds down,
	// both on normal exit and on signals.
	defer a.manager.Stop()

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Surface locks held by other processes as they come and go
	sessionsDir := filepath.Join(a.cfg.Paths.ResolveStorageRoot(), "sessions")
	if w, err := watcher.New(sessionsDir, a.logger); err == nil {
		w.SetChangeCallback(func(locks []watcher.LockState) {
			a.program.Send(locksChangedMsg{locks: locks})
		})
		w.Start()
		defer w.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}
