package logger

// LogEntry is one recorded event. Exactly one of the event fields is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	LoginAttempt   *LoginAttempt   `json:"login_attempt,omitempty"`
	RunCommand     *RunCommand     `json:"run_command,omitempty"`
	UnknownCommand *UnknownCommand `json:"unknown_command,omitempty"`
	ParseError     *ParseError     `json:"parse_error,omitempty"`
	CommandError   *CommandError   `json:"command_error,omitempty"`
	OpenTTYLog     *OpenTTYLog     `json:"open_tty_log,omitempty"`
}

// LogType is implemented by every event that can be recorded.
type LogType interface {
	setOn(le *LogEntry)
}

// LoginAttempt is recorded when a session authenticates.
type LoginAttempt struct {
	Username   string `json:"username"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Success    bool   `json:"success"`
}

func (e *LoginAttempt) setOn(le *LogEntry) { le.LoginAttempt = e }

// RunCommand is recorded when a builtin is dispatched.
type RunCommand struct {
	Command []string `json:"command"`
	// Redirect holds the file output was sent to, if any.
	Redirect string `json:"redirect,omitempty"`
}

func (e *RunCommand) setOn(le *LogEntry) { le.RunCommand = e }

// UnknownCommand is recorded when no builtin matches.
type UnknownCommand struct {
	Command []string `json:"command"`
}

func (e *UnknownCommand) setOn(le *LogEntry) { le.UnknownCommand = e }

// ParseError is recorded when a line can't be tokenized or built.
type ParseError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func (e *ParseError) setOn(le *LogEntry) { le.ParseError = e }

// CommandError is recorded when a builtin fails.
type CommandError struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
}

func (e *CommandError) setOn(le *LogEntry) { le.CommandError = e }

// OpenTTYLog is recorded when a session's terminal recording is created.
type OpenTTYLog struct {
	Name string `json:"name"`
}

func (e *OpenTTYLog) setOn(le *LogEntry) { le.OpenTTYLog = e }

var (
	_ LogType = (*OpenTTYLog)(nil)
	_ LogType = (*LoginAttempt)(nil)
	_ LogType = (*RunCommand)(nil)
	_ LogType = (*UnknownCommand)(nil)
	_ LogType = (*ParseError)(nil)
	_ LogType = (*CommandError)(nil)
)
