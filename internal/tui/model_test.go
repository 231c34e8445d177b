package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/telegram"
)

func newTestModel(t *testing.T, fake *telegram.Fake) Model {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StorageRoot = t.TempDir()
	mgr := session.NewManager(session.Config{
		StorageRoot:  cfg.Paths.StorageRoot,
		Factory:      telegram.FakeFactory(fake),
		PollInterval: 10 * time.Millisecond,
	})
	t.Cleanup(func() { _ = mgr.Stop() })
	return NewModel(mgr, cfg, nil)
}

// drive applies a message and returns the updated model.
func drive(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T", updated)
	}
	return model, cmd
}

func seedFake() *telegram.Fake {
	f := telegram.NewFake()
	f.Authorized = true
	f.AddDialog(telegram.Dialog{ID: 1, Name: "news", Kind: telegram.KindChannel},
		telegram.Message{ID: 1, Text: "hello", Views: 3})
	f.AddDialog(telegram.Dialog{ID: 2, Name: "digest", Kind: telegram.KindChannel},
		telegram.Message{ID: 2, Text: "world", Views: 1})
	return f
}

func fillCredentials(m Model) Model {
	m.inputs[inputSession].SetValue("main")
	m.inputs[inputAPIID].SetValue("12345")
	m.inputs[inputAPIHash].SetValue("hash")
	m.inputs[inputPhone].SetValue("+15551234567")
	return m
}

func TestStartsOnCredentials(t *testing.T) {
	m := newTestModel(t, seedFake())
	if m.step != stepCredentials {
		t.Errorf("step = %v, want credentials", m.step)
	}
	if m.focus != inputSession {
		t.Errorf("focus = %d, want session field", m.focus)
	}
}

func TestEmptyCredentialsRejected(t *testing.T) {
	m := newTestModel(t, seedFake())
	m.focus = inputCount - 1

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("submit with empty fields should not start a command")
	}
	if m.errorMsg == "" {
		t.Error("expected a validation error")
	}
	if m.step != stepCredentials {
		t.Errorf("step = %v, want credentials", m.step)
	}
}

func TestAuthorizedFlowReachesChannels(t *testing.T) {
	m := newTestModel(t, seedFake())
	m = fillCredentials(m)
	m.focus = inputCount - 1

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != stepConnecting {
		t.Fatalf("step = %v, want connecting", m.step)
	}
	if cmd == nil {
		t.Fatal("expected connect command")
	}

	// connect result -> terms check -> channel listing
	m, cmd = drive(t, m, cmd())
	if cmd == nil {
		t.Fatal("expected terms command")
	}
	m, cmd = drive(t, m, cmd())
	if cmd == nil {
		t.Fatal("expected channels command")
	}
	m, _ = drive(t, m, cmd())

	if m.step != stepChannels {
		t.Fatalf("step = %v, want channels", m.step)
	}
	if len(m.channels) != 2 || m.channels[0] != "news" {
		t.Errorf("channels = %v", m.channels)
	}
}

func TestUnauthorizedFlowAsksForCode(t *testing.T) {
	fake := seedFake()
	fake.Authorized = false
	fake.SignInCode = "9999"
	m := newTestModel(t, fake)
	m = fillCredentials(m)
	m.focus = inputCount - 1

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = drive(t, m, cmd()) // connect -> terms check
	m, cmd = drive(t, m, cmd()) // terms -> send code
	m, _ = drive(t, m, cmd())   // code sent

	if m.step != stepCode {
		t.Fatalf("step = %v, want code entry", m.step)
	}

	m.codeInput.SetValue("9999")
	m, cmd = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = drive(t, m, cmd()) // sign in -> channels
	m, _ = drive(t, m, cmd())

	if m.step != stepChannels {
		t.Fatalf("step = %v, want channels after sign in", m.step)
	}
}

func TestTermsGateBlocksUntilAccepted(t *testing.T) {
	fake := seedFake()
	fake.Terms = &telegram.TermsUpdate{Kind: telegram.TermsPending, ID: "tos-9", Text: "updated terms"}
	m := newTestModel(t, fake)
	m = fillCredentials(m)
	m.focus = inputCount - 1

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = drive(t, m, cmd()) // connect
	m, _ = drive(t, m, cmd())   // terms check

	if m.step != stepTerms {
		t.Fatalf("step = %v, want terms gate", m.step)
	}

	m, cmd = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if cmd == nil {
		t.Fatal("expected accept command")
	}
	m, cmd = drive(t, m, cmd()) // decision -> channels
	m, _ = drive(t, m, cmd())

	if m.step != stepChannels {
		t.Fatalf("step = %v, want channels after accepting", m.step)
	}
}

func TestChannelSelectionAndFetch(t *testing.T) {
	m := newTestModel(t, seedFake())
	m = fillCredentials(m)
	m.focus = inputCount - 1

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = drive(t, m, cmd())
	m, cmd = drive(t, m, cmd())
	m, _ = drive(t, m, cmd())

	// Toggle the first channel and fetch
	m, _ = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	if !m.selected["news"] {
		t.Fatal("space should select the highlighted channel")
	}
	m, cmd = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != stepFetching || cmd == nil {
		t.Fatalf("step = %v, want fetching", m.step)
	}
	m, _ = drive(t, m, cmd())

	if m.step != stepResults {
		t.Fatalf("step = %v, want results", m.step)
	}
	if m.table.Len() != 1 || m.table.Rows[0].Channel != "news" {
		t.Errorf("rows = %+v", m.table.Rows)
	}
}

func TestFetchWithNothingSelectedErrors(t *testing.T) {
	m := newTestModel(t, seedFake())
	m.step = stepChannels
	m.channels = []string{"news"}

	m, cmd := drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("fetch with no selection should not start a command")
	}
	if m.errorMsg == "" {
		t.Error("expected a selection error")
	}
}
