package session

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/insightwire/insightwire/internal/telegram"
)

// ChannelRow is one scraped message, flattened to (channel, message).
// Rows with empty or whitespace-only text never make it into a Table.
type ChannelRow struct {
	Channel  string
	Date     time.Time
	Text     string
	Views    int
	Forwards int
}

// Table is an ordered collection of scraped rows, the result of a
// fetch_channel_data command.
type Table struct {
	Rows []ChannelRow
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// WriteCSV writes the table with a header row. Dates are RFC 3339.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"channel", "date", "text", "views", "forwards"}); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := []string{
			row.Channel,
			row.Date.Format(time.RFC3339),
			row.Text,
			strconv.Itoa(row.Views),
			strconv.Itoa(row.Forwards),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// appendMessages flattens a dialog's messages into rows, dropping any whose
// text is empty after trimming.
func appendMessages(rows []ChannelRow, dialog telegram.Dialog, msgs []telegram.Message) []ChannelRow {
	for _, msg := range msgs {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		rows = append(rows, ChannelRow{
			Channel:  dialog.Name,
			Date:     msg.Date,
			Text:     text,
			Views:    msg.Views,
			Forwards: msg.Forwards,
		})
	}
	return rows
}

// MatchChannels filters channel names by a glob pattern ("news*", "*daily*").
// An empty pattern matches everything.
func MatchChannels(names []string, pattern string) ([]string, error) {
	if pattern == "" {
		return names, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range names {
		if g.Match(name) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}
