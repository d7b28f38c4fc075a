package logger

import (
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// StrCounter counts occurrences of strings.
type StrCounter map[string]int

// Increment adds one to the count of key.
func (c *StrCounter) Increment(key string) {
	if *c == nil {
		*c = make(StrCounter)
	}
	(*c)[key]++
}

// Top returns up to n keys ordered by descending count then name.
func (c StrCounter) Top(n int) []string {
	var keys []string
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c[keys[i]] != c[keys[j]] {
			return c[keys[i]] > c[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries int `json:"log_entries"`
	Sessions   int `json:"sessions"`

	Usernames       StrCounter `json:"usernames,omitempty"`
	CommandNames    StrCounter `json:"command_names,omitempty"`
	UnknownCommands StrCounter `json:"unknown_commands,omitempty"`
	ParseErrors     StrCounter `json:"parse_errors,omitempty"`
	CommandErrors   StrCounter `json:"command_errors,omitempty"`
	Recordings      []string   `json:"recordings,omitempty"`

	sessions map[string]bool
}

// Update adds an entry to the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	if le.SessionID != "" {
		if r.sessions == nil {
			r.sessions = make(map[string]bool)
		}
		if !r.sessions[le.SessionID] {
			r.sessions[le.SessionID] = true
			r.Sessions++
		}
	}

	switch {
	case le.LoginAttempt != nil:
		r.Usernames.Increment(le.LoginAttempt.Username)
	case le.RunCommand != nil:
		r.CommandNames.Increment(commandName(le.RunCommand.Command))
	case le.UnknownCommand != nil:
		r.UnknownCommands.Increment(commandName(le.UnknownCommand.Command))
	case le.ParseError != nil:
		r.ParseErrors.Increment(le.ParseError.Error)
	case le.CommandError != nil:
		r.CommandErrors.Increment(strings.Join([]string{commandName(le.CommandError.Command), le.CommandError.Error}, ": "))
	case le.OpenTTYLog != nil:
		r.Recordings = append(r.Recordings, le.OpenTTYLog.Name)
	}
}

func commandName(command []string) string {
	if len(command) == 0 {
		return ""
	}
	return command[0]
}
