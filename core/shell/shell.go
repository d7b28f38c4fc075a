// Package shell implements the in-game command interpreter: a tokenizer,
// instruction builder, builtin registry and a cooperative scheduler advanced
// one Tick at a time by the host's frame loop.
package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/logger"
)

const (
	DefaultName = "sh"
	DefaultHome = "/"
)

// State is the scheduler state of a shell.
type State int

const (
	// StateIdle accepts input.
	StateIdle State = iota
	// StateExecuting drains the instruction queue.
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FileSystem is what the shell needs from the virtual filesystem. Paths are
// absolute.
type FileSystem interface {
	DirectoryExists(name string) bool
	ListDirectories(name string) []string
	ListFiles(name string) []string
	ReadAllText(name string) (string, error)
	CreateOutput(name string, appendTo bool) (console.Output, error)
}

// Options configures a Shell. Zero values get defaults.
type Options struct {
	// Name prefixes the shell's own messages.
	Name string
	// Home is what the home marker expands to.
	Home string
	// WorkingDirectory is where the shell starts, Home by default.
	WorkingDirectory string

	Logger   *zerolog.Logger
	Recorder logger.EventRecorder
}

// Shell is an interactive command interpreter bound to one console.
type Shell struct {
	name    string
	home    string
	work    string
	console console.Console
	fs      FileSystem

	builtins    *Registry
	completions []string

	state  State
	queue  []*Instruction
	exited bool

	log      zerolog.Logger
	recorder logger.EventRecorder
}

var _ console.Completer = (*Shell)(nil)

// New creates a shell with the default builtins registered. Call Start once
// before the first Tick.
func New(con console.Console, fs FileSystem, opts Options) *Shell {
	s := &Shell{
		name:     opts.Name,
		home:     opts.Home,
		work:     opts.WorkingDirectory,
		console:  con,
		fs:       fs,
		builtins: NewRegistry(),
		log:      zerolog.Nop(),
		recorder: opts.Recorder,
	}

	if s.name == "" {
		s.name = DefaultName
	}
	if s.home == "" {
		s.home = DefaultHome
	}
	if s.work == "" {
		s.work = s.home
	}
	s.work = ResolvePath(s.work, Separator, s.home)
	if opts.Logger != nil {
		s.log = *opts.Logger
	}
	if s.recorder == nil {
		s.recorder = logger.Nop
	}

	s.registerDefaults()
	con.SetCompleter(s)

	return s
}

// Name returns the name the shell reports errors under.
func (s *Shell) Name() string {
	return s.name
}

// Home returns the home directory.
func (s *Shell) Home() string {
	return s.home
}

// WorkingDirectory returns the directory relative paths resolve against.
func (s *Shell) WorkingDirectory() string {
	return s.work
}

// State returns the scheduler state.
func (s *Shell) State() State {
	return s.state
}

// Exited reports whether the exit builtin ran.
func (s *Shell) Exited() bool {
	return s.exited
}

// Builtins returns the shell's registry.
func (s *Shell) Builtins() *Registry {
	return s.builtins
}

// Register adds or replaces a builtin.
func (s *Shell) Register(name, description string, action BuiltinFunc) {
	s.builtins.Register(name, description, action)
	s.updateCompletions()
}

// ResolvePath resolves a path against the shell's working and home
// directories.
func (s *Shell) ResolvePath(raw string) string {
	return ResolvePath(raw, s.work, s.home)
}

// ChangeDirectory makes dir the working directory. It must already be
// resolved and exist.
func (s *Shell) ChangeDirectory(dir string) {
	s.work = dir
	s.updateCompletions()
}

// Start writes the first prompt.
func (s *Shell) Start() {
	s.updateCompletions()
	s.writePrompt()
}

// Tick advances the shell by one unit of work: reading one line while idle,
// or running every queued instruction while executing. It never blocks and
// never panics on behalf of a builtin.
func (s *Shell) Tick() {
	switch s.state {
	case StateExecuting:
		s.drain()
	default:
		s.poll()
	}
}

func (s *Shell) writePrompt() {
	fmt.Fprintf(s.console, "%s# ", s.work)
}

func (s *Shell) poll() {
	line, ok := s.console.TryReadLine()
	if !ok {
		return
	}

	if strings.TrimSpace(line) == "" {
		s.writePrompt()
		return
	}

	queued, err := s.processLine(line)
	if err != nil {
		fmt.Fprintf(s.console, "%s: error: %s\n", s.name, err)
		s.record(&logger.ParseError{Line: line, Error: err.Error()})
		s.writePrompt()
		return
	}

	if !queued {
		s.writePrompt()
		return
	}
	s.state = StateExecuting
}

// processLine queues the instructions from one line, reporting whether there
// were any.
func (s *Shell) processLine(line string) (bool, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, nil
	}

	instructions, err := s.BuildInstructions(tokens)
	if err != nil {
		return false, err
	}

	s.queue = append(s.queue, instructions...)
	return len(instructions) > 0, nil
}

func (s *Shell) drain() {
	for len(s.queue) > 0 {
		ins := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		s.dispatch(ins)
	}

	s.writePrompt()
	s.state = StateIdle
}

func (s *Shell) dispatch(ins *Instruction) {
	defer s.release(ins)

	command := append([]string{ins.Name}, ins.Args...)
	builtin, ok := s.builtins.Lookup(ins.Name)
	if !ok || builtin.Action == nil {
		fmt.Fprintf(ins.Output, "%s: %s: Command not found.\n", s.name, ins.Name)
		s.record(&logger.UnknownCommand{Command: command})
		return
	}

	s.record(&logger.RunCommand{Command: command, Redirect: ins.Redirect})
	if err := s.runCommand(builtin, ins); err != nil {
		s.record(&logger.CommandError{Command: command, Error: err.Error()})
	}
}

// release closes a redirected output.
func (s *Shell) release(ins *Instruction) {
	if ins.Output == console.Output(s.console) {
		return
	}

	if closer, ok := ins.Output.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.log.Warn().Err(err).Str("command", ins.Name).Str("redirect", ins.Redirect).Msg("closing output failed")
		}
	}
}

func (s *Shell) record(event logger.LogType) {
	if err := s.recorder.Record(event); err != nil {
		s.log.Warn().Err(err).Msg("recording event failed")
	}
}
