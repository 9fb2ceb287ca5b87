package search

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Marker renders the matched and unmatched parts of a highlighted value.
type Marker interface {
	Match(s string) string
	Plain(s string) string
}

// TagMarker wraps segments in literal open/close tags.
type TagMarker struct {
	MatchOpen  string
	MatchClose string
	PlainOpen  string
	PlainClose string
}

// Match wraps a matched segment.
func (m TagMarker) Match(s string) string {
	return m.MatchOpen + s + m.MatchClose
}

// Plain wraps an unmatched segment.
func (m TagMarker) Plain(s string) string {
	return m.PlainOpen + s + m.PlainClose
}

// Strip removes every tag of m from s.
func (m TagMarker) Strip(s string) string {
	var pairs []string
	for _, tag := range []string{m.MatchOpen, m.MatchClose, m.PlainOpen, m.PlainClose} {
		if tag != "" {
			pairs = append(pairs, tag, "")
		}
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

var (
	// DefaultMarker emits <mark> for matches and <span> for the rest.
	DefaultMarker = TagMarker{
		MatchOpen:  "<mark>",
		MatchClose: "</mark>",
		PlainOpen:  "<span>",
		PlainClose: "</span>",
	}

	// ClassMarker emits the class-styled spans of the web frontend.
	ClassMarker = TagMarker{
		MatchOpen:  `<span class="bg-sky-800  whitespace-pre">`,
		MatchClose: "</span>",
		PlainOpen:  `<span class="whitespace-pre">`,
		PlainClose: "</span>",
	}
)

// TerminalMarker styles matches for a terminal and leaves the rest as is.
type TerminalMarker struct {
	Style lipgloss.Style
}

// NewTerminalMarker returns the marker used by the CLI on a TTY.
func NewTerminalMarker() *TerminalMarker {
	return &TerminalMarker{
		Style: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#F0F9FF")).
			Background(lipgloss.Color("#075985")),
	}
}

// Match renders s with the match style.
func (m *TerminalMarker) Match(s string) string {
	return m.Style.Render(s)
}

// Plain returns s unchanged.
func (m *TerminalMarker) Plain(s string) string {
	return s
}

// Highlight marks ranges of value. Ranges hold byte offsets with an inclusive
// end and must be sorted and non-overlapping; offsets outside value are
// clamped and ranges that end up empty or out of order are skipped.
//
// Every non-empty unmatched segment is passed through m.Plain, so with a
// TagMarker, Strip(Highlight(v, rs, m)) == v. Without ranges the whole value
// is plain.
func Highlight(value string, ranges []Range, m Marker) string {
	if m == nil {
		m = DefaultMarker
	}
	if len(ranges) == 0 {
		return m.Plain(value)
	}

	var b strings.Builder
	cursor := 0
	for _, r := range ranges {
		start := max(r.Start, cursor)
		end := min(r.End+1, len(value))
		if start >= end {
			continue
		}
		if start > cursor {
			b.WriteString(m.Plain(value[cursor:start]))
		}
		b.WriteString(m.Match(value[start:end]))
		cursor = end
	}
	if cursor < len(value) {
		b.WriteString(m.Plain(value[cursor:]))
	}
	return b.String()
}
