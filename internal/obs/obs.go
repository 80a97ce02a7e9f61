// Package obs wires up the structured logger shared by cmd/cachesim
// and internal/sim: a zerolog.Logger writing human-readable console
// output to a terminal and JSON otherwise.
package obs

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger at the given level, writing to w. If w
// is an *os.File attached to a terminal, output is rendered via
// zerolog.ConsoleWriter with ANSI color support (via go-colorable, for
// Windows consoles); otherwise it is newline-delimited JSON.
func New(level zerolog.Level, w io.Writer) zerolog.Logger {
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: colorable.NewColorable(f), TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
