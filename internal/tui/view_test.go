package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

func TestTruncateKeepsRunesIntact(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
	}{
		{"ascii", "plain channel name", 10},
		{"cyrillic", "Новости дня без купюр", 12},
		{"cjk", "每日新闻摘要频道", 8},
		{"mixed", "tech 新闻 дайджест", 9},
		{"short enough", "ok", 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.in, tc.width)
			if !utf8.ValidString(got) {
				t.Fatalf("truncate(%q, %d) = %q, invalid UTF-8", tc.in, tc.width, got)
			}
			if w := runewidth.StringWidth(got); w > tc.width {
				t.Errorf("truncate(%q, %d) renders %d cells wide", tc.in, tc.width, w)
			}
			if runewidth.StringWidth(tc.in) <= tc.width && got != tc.in {
				t.Errorf("truncate(%q, %d) = %q, want input unchanged", tc.in, tc.width, got)
			}
			if runewidth.StringWidth(tc.in) > tc.width && !strings.HasSuffix(got, "...") {
				t.Errorf("truncate(%q, %d) = %q, want ellipsis suffix", tc.in, tc.width, got)
			}
		})
	}
}
