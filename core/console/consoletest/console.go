// Package consoletest provides a scripted console for tests.
package consoletest

import (
	"bytes"

	"github.com/watercolor-games/redteam/core/console"
)

// Console is a console.Console fed from a list of input lines. Everything
// written to it is captured in Out.
type Console struct {
	Out bytes.Buffer

	// Input holds lines not yet read.
	Input []string
	// Clears counts calls to Clear.
	Clears int

	Completer console.Completer
}

var _ console.Console = (*Console)(nil)

// New creates a console that will return the given lines in order.
func New(lines ...string) *Console {
	return &Console{Input: lines}
}

// Feed queues more input lines.
func (c *Console) Feed(lines ...string) {
	c.Input = append(c.Input, lines...)
}

func (c *Console) Write(b []byte) (int, error) {
	return c.Out.Write(b)
}

// Clear resets the captured output.
func (c *Console) Clear() error {
	c.Clears++
	c.Out.Reset()
	return nil
}

// TryReadLine implements console.Console.
func (c *Console) TryReadLine() (string, bool) {
	if len(c.Input) == 0 {
		return "", false
	}
	line := c.Input[0]
	c.Input = c.Input[1:]
	return line, true
}

// SetCompleter implements console.Console.
func (c *Console) SetCompleter(completer console.Completer) {
	c.Completer = completer
}

// String returns the captured output.
func (c *Console) String() string {
	return c.Out.String()
}
