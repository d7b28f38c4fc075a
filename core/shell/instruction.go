package shell

import (
	"strings"

	"github.com/watercolor-games/redteam/core/console"
)

const (
	redirectTruncate = ">"
	redirectAppend   = ">>"
)

// Instruction is one parsed command ready to dispatch.
type Instruction struct {
	Name string
	Args []string
	// Output is where the builtin writes, the shell's console unless the line
	// was redirected.
	Output console.Output
	// Redirect is the resolved path output was redirected to, if any.
	Redirect string
}

func (ins *Instruction) checkName() error {
	if strings.TrimSpace(ins.Name) == "" {
		return syntaxErrorf("command expected")
	}
	return nil
}

// BuildInstructions turns tokens into instructions. A redirection operator
// takes every remaining token, joined by spaces, as the target path and ends
// the line.
func (s *Shell) BuildInstructions(tokens []string) ([]*Instruction, error) {
	var (
		out []*Instruction
		ins *Instruction
	)

	for i, token := range tokens {
		if ins == nil {
			ins = &Instruction{Output: s.console}
		}

		if token == redirectTruncate || token == redirectAppend {
			if err := ins.checkName(); err != nil {
				return nil, err
			}

			filePath := strings.Join(tokens[i+1:], " ")
			if filePath == "" {
				return nil, syntaxErrorf("expected file path after %s", token)
			}

			resolved := s.ResolvePath(filePath)
			target, err := s.fs.CreateOutput(resolved, token == redirectAppend)
			if err != nil {
				return nil, syntaxErrorf("%s", err)
			}

			ins.Output = target
			ins.Redirect = resolved
			return append(out, ins), nil
		}

		if strings.TrimSpace(ins.Name) == "" {
			ins.Name = token
		} else {
			ins.Args = append(ins.Args, token)
		}
	}

	if ins != nil {
		out = append(out, ins)
	}
	return out, nil
}
