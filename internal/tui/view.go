package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/insightwire/insightwire/internal/tui/styles"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("insightwire"))
	b.WriteString("\n")

	switch m.step {
	case stepCredentials:
		b.WriteString(m.viewCredentials())
	case stepConnecting:
		b.WriteString(styles.Muted.Render("Connecting to Telegram..."))
	case stepCode:
		b.WriteString(m.viewCode())
	case stepTerms:
		b.WriteString(m.viewTerms())
	case stepChannels:
		b.WriteString(m.viewChannels())
	case stepFetching:
		b.WriteString(styles.Muted.Render("Fetching..."))
	case stepResults:
		b.WriteString(m.viewResults())
	}

	if m.errorMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.Error.Render("error: " + m.errorMsg))
	}
	if m.infoMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.Secondary.Render(m.infoMsg))
	}

	return b.String()
}

func (m Model) viewCredentials() string {
	labels := []string{"Session", "API ID", "API Hash", "Phone"}

	var b strings.Builder
	b.WriteString(styles.Title.Render("Open a session"))
	b.WriteString("\n")
	for i, ti := range m.inputs {
		label := styles.Muted.Render(fmt.Sprintf("%-10s", labels[i]))
		b.WriteString(label + ti.View() + "\n")
	}
	if len(m.heldLocks) > 0 {
		var names []string
		for _, ls := range m.heldLocks {
			names = append(names, ls.SessionID)
		}
		b.WriteString("\n")
		b.WriteString(styles.Warning.Render("locked elsewhere: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}
	b.WriteString(m.helpBar("tab", "next field", "enter", "connect", "esc", "quit"))
	return b.String()
}

func (m Model) viewCode() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("A verification code was sent to "+m.phone) + "\n\n")
	b.WriteString(m.codeInput.View() + "\n")
	b.WriteString(m.helpBar("enter", "sign in", "esc", "quit"))
	return b.String()
}

func (m Model) viewTerms() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Terms of Service update"))
	b.WriteString("\n")
	text := ""
	if m.terms != nil {
		text = m.terms.Text
	}
	b.WriteString(styles.ContentBox.Render(text))
	b.WriteString("\n")
	b.WriteString(styles.Warning.Render("Declining closes the session."))
	b.WriteString("\n")
	b.WriteString(m.helpBar("a", "accept", "d", "decline"))
	return b.String()
}

func (m Model) viewChannels() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Channels"))
	b.WriteString("\n")

	if len(m.channels) == 0 {
		b.WriteString(styles.Muted.Render("No channels found for this account."))
		b.WriteString("\n")
		b.WriteString(m.helpBar("r", "refresh", "q", "quit"))
		return b.String()
	}

	for i, name := range m.channels {
		marker := "[ ]"
		if m.selected[name] {
			marker = "[x]"
		}
		line := marker + " " + name
		switch {
		case i == m.cursor:
			b.WriteString(styles.ListItemActive.Render(line))
		case m.selected[name]:
			b.WriteString(styles.ListItemSelected.Render(line))
		default:
			b.WriteString(styles.ListItem.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.helpBar("space", "toggle", "a", "all", "n", "none", "enter", "fetch", "r", "refresh", "q", "quit"))
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("Messages (%d)", m.table.Len())))
	b.WriteString("\n")

	header := fmt.Sprintf("%-20s %-16s %8s %8s  %s", "CHANNEL", "DATE", "VIEWS", "FWDS", "TEXT")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	visible := m.visibleRows()
	rows := m.table.Rows
	end := m.offset + visible
	if end > len(rows) {
		end = len(rows)
	}
	textWidth := m.textColumnWidth()
	for i := m.offset; i < end; i++ {
		row := rows[i]
		line := fmt.Sprintf("%-20s %-16s %8d %8d  %s",
			truncate(row.Channel, 20),
			row.Date.Format("2006-01-02 15:04"),
			row.Views,
			row.Forwards,
			truncate(row.Text, textWidth),
		)
		style := styles.TableRow
		if i%2 == 1 {
			style = styles.TableRowAlt
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if end < len(rows) {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("... %d more", len(rows)-end)))
		b.WriteString("\n")
	}

	b.WriteString(m.helpBar("j/k", "scroll", "s", "save csv", "esc", "back", "q", "quit"))
	return b.String()
}

// visibleRows bounds how many result rows render at once.
func (m Model) visibleRows() int {
	max := m.cfg.TUI.MaxTableRows
	if max <= 0 {
		max = 500
	}
	if m.height > 8 && m.height-8 < max {
		return m.height - 8
	}
	return max
}

func (m Model) textColumnWidth() int {
	w := m.width - 58
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) helpBar(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, styles.HelpKey.Render(pairs[i])+" "+pairs[i+1])
	}
	return styles.HelpBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  ")))
}

// truncate clips s to n display cells. Channel names and message text are
// routinely non-ASCII, so clipping goes by cell width, never by byte.
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}
