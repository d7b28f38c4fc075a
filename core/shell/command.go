package shell

import (
	"fmt"
)

// runCommand runs a builtin for one instruction. Errors and panics become a
// RuntimeError that's reported to the instruction's output and logged; they
// never reach the scheduler.
func (s *Shell) runCommand(builtin *Builtin, ins *Instruction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{Command: ins.Name, Err: fmt.Errorf("%v", r)}
			s.log.Error().Str("command", ins.Name).Interface("panic", r).Msg("builtin panicked")
		}

		if err != nil {
			fmt.Fprintf(ins.Output, "%s: error: %s\n", ins.Name, err)
			s.log.Warn().Err(err).Str("command", ins.Name).Strs("args", ins.Args).Msg("builtin failed")
		}
	}()

	if err := builtin.Action(ins.Output, ins.Name, ins.Args); err != nil {
		return &RuntimeError{Command: ins.Name, Err: err}
	}
	return nil
}
