package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/retry"
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/telegram"
	"github.com/insightwire/insightwire/internal/watcher"
)

// step is the wizard stage the UI is in.
type step int

const (
	stepCredentials step = iota
	stepConnecting
	stepCode
	stepTerms
	stepChannels
	stepFetching
	stepResults
)

// Credential input field order
const (
	inputSession = iota
	inputAPIID
	inputAPIHash
	inputPhone
	inputCount
)

// Model holds the TUI application state
type Model struct {
	manager *session.Manager
	caller  *retry.Caller
	cfg     *config.Config
	logger  *logging.Logger

	step     step
	width    int
	height   int
	quitting bool
	errorMsg string
	infoMsg  string

	// Credential entry
	inputs     []textinput.Model
	focus      int
	phone      string
	authorized bool

	// Verification code entry
	codeInput textinput.Model

	// Pending terms-of-service update
	terms *telegram.TermsUpdate

	// Channel selection, cached until the TTL lapses
	channels   []string
	channelsAt time.Time
	cursor     int
	selected   map[string]bool

	// Scraped results
	table  session.Table
	offset int

	// Lock files currently held under the storage root, per the watcher
	heldLocks []watcher.LockState
}

// NewModel creates the TUI model.
func NewModel(mgr *session.Manager, cfg *config.Config, logger *logging.Logger) Model {
	if logger == nil {
		logger = logging.NopLogger()
	}

	inputs := make([]textinput.Model, inputCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 100
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[inputSession].Placeholder = "session name (e.g. main)"
	inputs[inputAPIID].Placeholder = "API ID"
	inputs[inputAPIHash].Placeholder = "API hash"
	inputs[inputAPIHash].EchoMode = textinput.EchoPassword
	inputs[inputPhone].Placeholder = "phone (+15551234567)"
	inputs[inputSession].Focus()

	code := textinput.New()
	code.Placeholder = "verification code"
	code.CharLimit = 10
	code.Width = 20

	return Model{
		manager:   mgr,
		caller:    retry.NewCaller(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay(), logger),
		cfg:       cfg,
		logger:    logger.WithComponent("tui"),
		inputs:    inputs,
		codeInput: code,
		selected:  make(map[string]bool),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case connectResultMsg:
		if msg.err != nil {
			m.step = stepCredentials
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		m.authorized = msg.authorized
		// Check the terms gate before anything else
		return m, m.termsCmd()

	case termsResultMsg:
		if msg.err != nil {
			m.step = stepCredentials
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		if msg.update != nil && msg.update.Kind == telegram.TermsPending {
			m.terms = msg.update
			m.step = stepTerms
			return m, nil
		}
		return m.afterTermsGate()

	case termsDecisionMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		m.terms = nil
		if !msg.accepted {
			m.quitting = true
			return m, tea.Quit
		}
		return m.afterTermsGate()

	case codeSentMsg:
		if msg.err != nil {
			m.step = stepCredentials
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		m.step = stepCode
		m.codeInput.Focus()
		return m, textinput.Blink

	case signInResultMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			m.codeInput.SetValue("")
			return m, nil
		}
		m.authorized = true
		m.step = stepFetching
		return m, m.channelsCmd()

	case channelsMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			m.step = stepChannels
			return m, nil
		}
		m.channels = msg.channels
		m.channelsAt = time.Now()
		if m.cursor >= len(m.channels) {
			m.cursor = 0
		}
		m.step = stepChannels
		return m, nil

	case fetchResultMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			m.step = stepChannels
			return m, nil
		}
		m.table = msg.table
		m.offset = 0
		m.step = stepResults
		return m, nil

	case locksChangedMsg:
		m.heldLocks = msg.locks
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
		} else {
			m.infoMsg = "saved " + msg.path
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errorMsg = ""
	m.infoMsg = ""

	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.step {
	case stepCredentials:
		return m.handleCredentialsKey(msg)
	case stepCode:
		return m.handleCodeKey(msg)
	case stepTerms:
		return m.handleTermsKey(msg)
	case stepChannels:
		return m.handleChannelsKey(msg)
	case stepResults:
		return m.handleResultsKey(msg)
	}
	// Connecting/fetching steps ignore keys until the async command resolves
	return m, nil
}

func (m Model) handleCredentialsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "down", "enter":
		if msg.String() == "enter" && m.focus == inputCount-1 {
			return m.submitCredentials()
		}
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % inputCount
		m.inputs[m.focus].Focus()
		return m, textinput.Blink
	case "shift+tab", "up":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus - 1 + inputCount) % inputCount
		m.inputs[m.focus].Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submitCredentials() (tea.Model, tea.Cmd) {
	for i := range m.inputs {
		if m.inputs[i].Value() == "" {
			m.errorMsg = "all fields are required"
			return m, nil
		}
	}
	m.phone = m.inputs[inputPhone].Value()
	m.step = stepConnecting
	return m, m.connectCmd(
		m.inputs[inputSession].Value(),
		m.inputs[inputAPIID].Value(),
		m.inputs[inputAPIHash].Value(),
		m.phone,
	)
}

func (m Model) handleCodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		code := m.codeInput.Value()
		if code == "" {
			m.errorMsg = "enter the code you received"
			return m, nil
		}
		return m, m.signInCmd(code)
	}

	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

func (m Model) handleTermsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "a", "y":
		return m, m.termsDecisionCmd(true)
	case "d", "n":
		return m, m.termsDecisionCmd(false)
	}
	return m, nil
}

func (m Model) handleChannelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.channels)-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(m.channels) {
			name := m.channels[m.cursor]
			m.selected[name] = !m.selected[name]
		}
	case "a":
		for _, name := range m.channels {
			m.selected[name] = true
		}
	case "n":
		m.selected = make(map[string]bool)
	case "r":
		m.step = stepFetching
		return m, m.channelsCmd()
	case "enter":
		targets := m.selectedChannels()
		if len(targets) == 0 {
			m.errorMsg = "select at least one channel (space toggles, a selects all)"
			return m, nil
		}
		m.step = stepFetching
		return m, m.fetchCmd(targets)
	}
	return m, nil
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.step = stepChannels
		// Refresh the channel list when the cache has gone stale
		if time.Since(m.channelsAt) > m.cfg.Scrape.ChannelCacheTTL() {
			m.step = stepFetching
			return m, m.channelsCmd()
		}
	case "up", "k":
		if m.offset > 0 {
			m.offset--
		}
	case "down", "j":
		if m.offset < m.table.Len()-1 {
			m.offset++
		}
	case "s":
		return m, m.saveCmd()
	}
	return m, nil
}

func (m Model) selectedChannels() []string {
	var out []string
	for _, name := range m.channels {
		if m.selected[name] {
			out = append(out, name)
		}
	}
	return out
}

// afterTermsGate routes past the terms check: authorized sessions go
// straight to the channel list, others start the sign-in flow.
func (m Model) afterTermsGate() (tea.Model, tea.Cmd) {
	if m.authorized {
		m.step = stepFetching
		return m, m.channelsCmd()
	}
	return m, m.sendCodeCmd()
}

func (m Model) connectCmd(sessionID, apiID, apiHash, phone string) tea.Cmd {
	mgr, caller := m.manager, m.caller
	return func() tea.Msg {
		ok, err := retry.Do(caller, func() (bool, error) {
			return mgr.Connect(sessionID, apiID, apiHash, phone)
		})
		if err != nil {
			return connectResultMsg{err: err}
		}
		if !ok {
			return connectResultMsg{err: fmt.Errorf("could not open session %q", sessionID)}
		}
		authorized, err := mgr.IsAuthorized()
		return connectResultMsg{authorized: authorized, err: err}
	}
}

func (m Model) termsCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		update, err := mgr.TermsUpdate()
		return termsResultMsg{update: update, err: err}
	}
}

func (m Model) termsDecisionCmd(accept bool) tea.Cmd {
	mgr := m.manager
	id := ""
	if m.terms != nil {
		id = m.terms.ID
	}
	return func() tea.Msg {
		var err error
		if accept {
			_, err = mgr.AcceptTerms(id)
		} else {
			_, err = mgr.DeclineTerms(id)
		}
		return termsDecisionMsg{accepted: accept, err: err}
	}
}

func (m Model) sendCodeCmd() tea.Cmd {
	mgr, phone := m.manager, m.phone
	return func() tea.Msg {
		_, err := mgr.RequestCode(phone)
		return codeSentMsg{err: err}
	}
}

func (m Model) signInCmd(code string) tea.Cmd {
	mgr, phone := m.manager, m.phone
	return func() tea.Msg {
		_, err := mgr.SignIn(phone, code)
		return signInResultMsg{err: err}
	}
}

func (m Model) channelsCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		channels, err := mgr.ListChannels()
		return channelsMsg{channels: channels, err: err}
	}
}

func (m Model) fetchCmd(channels []string) tea.Cmd {
	mgr, caller, limit := m.manager, m.caller, m.cfg.Scrape.DefaultLimit
	return func() tea.Msg {
		table, err := retry.Do(caller, func() (session.Table, error) {
			return mgr.FetchChannelData(channels, limit)
		})
		return fetchResultMsg{table: table, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	table := m.table
	root := m.cfg.Paths.ResolveStorageRoot()
	return func() tea.Msg {
		path := filepath.Join(root, "export-"+time.Now().Format("20060102-150405")+".csv")
		if err := os.MkdirAll(root, 0o755); err != nil {
			return savedMsg{err: err}
		}
		f, err := os.Create(path)
		if err != nil {
			return savedMsg{err: err}
		}
		defer f.Close()
		if err := table.WriteCSV(f); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: path}
	}
}
