package shell

import "fmt"

// SyntaxError is a failure to tokenize or build a line. It's reported by the
// shell and nothing from the line runs.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

func syntaxErrorf(format string, a ...interface{}) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, a...)}
}

// RuntimeError is a failure raised while a builtin runs.
type RuntimeError struct {
	// Command is the name the builtin was invoked as.
	Command string
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Err.Error()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
