package console

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/muesli/termenv"
)

// ReadlineConfig holds the terminal a ReadlineConsole runs on.
type ReadlineConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// FuncGetWidth reports the terminal width, nil uses readline's default.
	FuncGetWidth func() int
	// FuncIsTerminal reports whether the output is a terminal.
	FuncIsTerminal func() bool
}

type readResult struct {
	line string
	err  error
}

// ReadlineConsole is an interactive console with line editing, history and
// tab completion.
//
// Lines are read on a background goroutine that's only started when the shell
// polls, so TryReadLine never blocks. Output written after the last newline is
// held back and used as the prompt of the next read.
type ReadlineConsole struct {
	rl         *readline.Instance
	output     *termenv.Output
	isTerminal func() bool

	mu        sync.Mutex
	pending   string
	completer Completer

	// reading is only touched by the goroutine calling TryReadLine.
	reading bool
	results chan readResult
	done    chan struct{}
	once    sync.Once
}

var _ Console = (*ReadlineConsole)(nil)

// NewReadlineConsole creates a console on the given terminal.
func NewReadlineConsole(rc ReadlineConfig) (*ReadlineConsole, error) {
	c := &ReadlineConsole{
		isTerminal: rc.FuncIsTerminal,
		results:    make(chan readResult, 1),
		done:       make(chan struct{}),
	}

	cfg := &readline.Config{
		Stdin:          readline.NewCancelableStdin(rc.Stdin),
		Stdout:         rc.Stdout,
		Stderr:         rc.Stderr,
		FuncGetWidth:   rc.FuncGetWidth,
		FuncIsTerminal: rc.FuncIsTerminal,
		AutoComplete:   &readlineCompleter{console: c},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	c.rl = rl
	c.output = termenv.NewOutput(rl)
	return c, nil
}

// TryReadLine implements Console.
func (c *ReadlineConsole) TryReadLine() (string, bool) {
	select {
	case <-c.done:
		return "", false
	default:
	}

	if !c.reading {
		c.reading = true

		c.mu.Lock()
		prompt := c.pending
		c.pending = ""
		c.mu.Unlock()

		go func() {
			c.rl.SetPrompt(prompt)
			line, err := c.rl.Readline()
			c.results <- readResult{line: line, err: err}
		}()
	}

	select {
	case res := <-c.results:
		c.reading = false
		switch {
		case errors.Is(res.err, readline.ErrInterrupt):
			// Interrupt clears the line.
			return "", true
		case res.err != nil:
			c.once.Do(func() { close(c.done) })
			return "", false
		default:
			return res.line, true
		}
	default:
		return "", false
	}
}

// Done is closed once the terminal's input has ended.
func (c *ReadlineConsole) Done() <-chan struct{} {
	return c.done
}

// Write sends complete lines to the terminal and holds back the trailing
// partial line as the next prompt.
func (c *ReadlineConsole) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.pending + string(b)
	idx := strings.LastIndexByte(text, '\n')
	c.pending = text[idx+1:]
	if idx >= 0 {
		if _, err := io.WriteString(c.rl, text[:idx+1]); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

// Clear implements Output.
func (c *ReadlineConsole) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.output.ClearScreen()
	return nil
}

// IsTerminal implements Terminal.
func (c *ReadlineConsole) IsTerminal() bool {
	if c.isTerminal == nil {
		return true
	}
	return c.isTerminal()
}

var _ Terminal = (*ReadlineConsole)(nil)

// SetCompleter implements Console.
func (c *ReadlineConsole) SetCompleter(completer Completer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completer = completer
}

func (c *ReadlineConsole) getCompleter() Completer {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.completer
}

// Close releases the terminal.
func (c *ReadlineConsole) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.rl.Close()
}

// readlineCompleter bridges readline's tab completion to a Completer.
type readlineCompleter struct {
	console *ReadlineConsole
}

var _ readline.AutoCompleter = (*readlineCompleter)(nil)

func (rc *readlineCompleter) Do(line []rune, pos int) ([][]rune, int) {
	completer := rc.console.getCompleter()
	if completer == nil {
		return nil, 0
	}

	word := CurrentWord(string(line[:pos]))
	wordLen := len([]rune(word))

	var out [][]rune
	seen := make(map[string]bool)
	for _, candidate := range completer.Complete(word) {
		runes := []rune(candidate)
		if len(runes) < wordLen || !strings.HasPrefix(strings.ToLower(candidate), strings.ToLower(word)) {
			continue
		}
		suffix := string(runes[wordLen:])
		if suffix == "" || seen[suffix] {
			continue
		}
		seen[suffix] = true
		out = append(out, []rune(suffix))
	}

	return out, wordLen
}

// CurrentWord returns the word being typed at the end of line. Spaces escaped
// with a backslash or inside an open quote are part of the word.
func CurrentWord(line string) string {
	start := 0
	inQuote := false
	inEscape := false
	for i, ch := range line {
		switch {
		case inEscape:
			inEscape = false
		case ch == '\\':
			inEscape = true
		case ch == '"':
			inQuote = !inQuote
		case ch == ' ' && !inQuote:
			start = i + 1
		}
	}
	return line[start:]
}
