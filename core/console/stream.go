package console

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/muesli/cancelreader"
)

// StreamConsole is a line oriented console over a plain reader and writer,
// used for pipes and sessions without a terminal.
type StreamConsole struct {
	in  io.Reader
	out io.Writer

	lines chan string
	done  chan struct{}
	start sync.Once
	close sync.Once

	completer Completer
}

var _ Console = (*StreamConsole)(nil)

// NewStreamConsole creates a console reading lines from in and writing to
// out. If in is a cancelreader.CancelReader it's cancelled on Close.
func NewStreamConsole(in io.Reader, out io.Writer) *StreamConsole {
	return &StreamConsole{
		in:    in,
		out:   out,
		lines: make(chan string, 1),
		done:  make(chan struct{}),
	}
}

func (c *StreamConsole) scan() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.lines <- strings.TrimSuffix(scanner.Text(), "\r"):
		case <-c.done:
			return
		}
	}
}

// TryReadLine implements Console.
func (c *StreamConsole) TryReadLine() (string, bool) {
	c.start.Do(func() { go c.scan() })

	select {
	case line, ok := <-c.lines:
		if !ok {
			// Input ended and every line was read.
			c.close.Do(func() { close(c.done) })
			return "", false
		}
		return line, true
	default:
		return "", false
	}
}

// Done is closed once a read finds the input ended with no lines left, or the
// console is closed.
func (c *StreamConsole) Done() <-chan struct{} {
	return c.done
}

func (c *StreamConsole) Write(b []byte) (int, error) {
	return c.out.Write(b)
}

// Clear is a no-op, streams have no screen to clear.
func (c *StreamConsole) Clear() error {
	return nil
}

// SetCompleter implements Console. Streams never ask for completions but the
// completer is kept so callers can query it.
func (c *StreamConsole) SetCompleter(completer Completer) {
	c.completer = completer
}

// Close stops reading input.
func (c *StreamConsole) Close() error {
	if cr, ok := c.in.(cancelreader.CancelReader); ok {
		cr.Cancel()
	}
	c.close.Do(func() { close(c.done) })
	return nil
}
