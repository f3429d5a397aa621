// Package progress shows a spinner on interactive terminals while a long
// external step runs.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Stop ends a progress indicator.
type Stop func()

// Start shows message with a spinner on w when w is a terminal.
// On anything else it does nothing and returns a no-op Stop.
func Start(w io.Writer, message string) Stop {
	if !IsTerminal(w) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Color("yellow") //nolint:errcheck
	s.Suffix = " " + message
	s.Start()

	return s.Stop
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(file.Fd())) //nolint:gosec // Fd fits in int on supported platforms.
}
