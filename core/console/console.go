// Package console defines the terminal surface the shell reads from and
// writes to.
package console

import (
	"io"
)

// Output is the write side of a console. Redirected file targets only
// implement this half.
type Output interface {
	io.Writer

	// Clear erases whatever the output currently shows.
	Clear() error
}

// Completer produces autocomplete candidates for a partially typed word.
type Completer interface {
	Complete(word string) []string
}

// CompleterFunc adapts a function to a Completer.
type CompleterFunc func(word string) []string

func (f CompleterFunc) Complete(word string) []string {
	return f(word)
}

var _ Completer = (CompleterFunc)(nil)

// Console is an interactive terminal.
type Console interface {
	Output

	// TryReadLine returns the next line of input if one is ready. It never
	// blocks.
	TryReadLine() (string, bool)

	// SetCompleter sets the source of autocomplete candidates.
	SetCompleter(Completer)
}

// Discard is an Output that drops everything written to it.
var Discard Output = discard{}

type discard struct{}

func (discard) Write(b []byte) (int, error) {
	return len(b), nil
}

func (discard) Clear() error {
	return nil
}

// Terminal is implemented by outputs that can report whether they're shown on
// a terminal capable of color.
type Terminal interface {
	IsTerminal() bool
}

// IsTerminal reports whether out is a terminal.
func IsTerminal(out Output) bool {
	if t, ok := out.(Terminal); ok {
		return t.IsTerminal()
	}
	return false
}
