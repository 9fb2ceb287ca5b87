// Package output provides consistent CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

type level int

const (
	levelPlain level = iota
	levelSuccess
	levelWarning
	levelError
)

var icons = map[level]string{
	levelSuccess: "✅",
	levelWarning: "⚠️ ",
	levelError:   "❌",
}

var styles = map[level]lipgloss.Style{
	levelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	levelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	levelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// Writer prints status lines, tables and JSON. Write errors are ignored;
// there is nowhere left to report them.
type Writer struct {
	out   io.Writer
	color bool
}

// New creates a Writer. Messages are colored only when out is a terminal.
func New(out io.Writer) *Writer {
	w := &Writer{out: out}
	if f, ok := out.(*os.File); ok {
		w.color = isatty.IsTerminal(f.Fd())
	}
	return w
}

func (w *Writer) line(lv level, icon, msg string) {
	if style, ok := styles[lv]; ok && w.color {
		msg = style.Render(msg)
	}
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Status prints msg after icon, or indented when icon is empty.
func (w *Writer) Status(icon, msg string) { w.line(levelPlain, icon, msg) }

func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.line(levelSuccess, icons[levelSuccess], msg) }

func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

func (w *Writer) Warning(msg string) { w.line(levelWarning, icons[levelWarning], msg) }

func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

func (w *Writer) Error(msg string) { w.line(levelError, icons[levelError], msg) }

func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Table prints rows in aligned columns under a header. Cells may contain
// terminal escape sequences; those are counted as width by the aligner, so
// highlighted columns should come last.
func (w *Writer) Table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// JSON prints v as indented JSON without HTML escaping, so highlight tags
// stay readable.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
