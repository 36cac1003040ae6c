package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mgutz/ansi"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	bell         = "\a"
	alertStyle   = "red+h"
)

// Console prints alerts to a terminal: bright red, wrapped to the terminal
// width, followed by a bell.
type Console struct {
	Out   io.Writer
	Width func() int
}

// NewConsole writes to f and sizes messages to f's terminal.
func NewConsole(f *os.File) *Console {
	return &Console{Out: f, Width: TerminalWidth(f)}
}

// TerminalWidth reports the column count of f, or 80 when f is not a
// terminal.
func TerminalWidth(f *os.File) func() int {
	return func() int {
		w, _, err := term.GetSize(int(f.Fd()))
		if err != nil || w <= 0 {
			return defaultWidth
		}
		return w
	}
}

// Send prints only the title. The detail text is for notifiers that log it;
// the monitor already records it in the log.
func (c *Console) Send(ctx context.Context, title, text string) error {
	width := defaultWidth
	if c.Width != nil {
		width = c.Width()
	}
	_, err := fmt.Fprintln(c.Out, ansi.Color(Wrap(title, width), alertStyle)+bell)
	return err
}

// Wrap breaks s into lines of at most width display cells, splitting on
// whitespace. Words wider than a line are split across lines.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var (
		lines []string
		line  strings.Builder
		lineW int
	)
	flush := func() {
		if lineW > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineW = 0
		}
	}

	for _, word := range strings.Fields(s) {
		for runewidth.StringWidth(word) > width {
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				r := []rune(word)
				head = string(r[0])
			}
			flush()
			lines = append(lines, head)
			word = word[len(head):]
		}
		if word == "" {
			continue
		}
		ww := runewidth.StringWidth(word)
		if lineW > 0 && lineW+1+ww > width {
			flush()
		}
		if lineW > 0 {
			line.WriteByte(' ')
			lineW++
		}
		line.WriteString(word)
		lineW += ww
	}
	flush()
	return strings.Join(lines, "\n")
}
