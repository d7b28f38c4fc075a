package shell

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	getopt "github.com/pborman/getopt/v2"
	"github.com/watercolor-games/redteam/core/console"
)

func (s *Shell) registerDefaults() {
	s.builtins.Register("clear", "Clear the screen", func(out console.Output, name string, args []string) error {
		return out.Clear()
	})
	s.builtins.Register("echo", "Write text to the screen", s.echo)
	s.builtins.Register("ls", "List the current working directory.", s.ls)
	s.builtins.Register("cd", "Change directory", s.cd)
	s.builtins.Register("cat", "Show a file's contents", s.cat)
	s.builtins.Register("pwd", "Print the working directory", s.pwd)
	s.builtins.Register("help", "Show the available commands", s.help)
	s.builtins.Register("exit", "Leave the shell", s.exit)
}

func (s *Shell) echo(out console.Output, name string, args []string) error {
	_, err := fmt.Fprintln(out, strings.Join(args, " "))
	return err
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

func (s *Shell) ls(out console.Output, name string, args []string) error {
	opts := getopt.New()
	colorOpt := opts.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize directory names (always|auto|never)")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(append([]string{name}, args...), nil); err != nil {
		return err
	}
	if *helpOpt {
		fmt.Fprintf(out, "Usage: %s [OPTION]...\n", name)
		fmt.Fprintln(out, "List the directories then the files of the working directory.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Flags:")
		opts.PrintOptions(out)
		return nil
	}

	dirColor := color.New(color.FgBlue, color.Bold)
	switch *colorOpt {
	case colorAlways:
		dirColor.EnableColor()
	case colorNever:
		dirColor.DisableColor()
	default:
		if console.IsTerminal(out) {
			dirColor.EnableColor()
		} else {
			dirColor.DisableColor()
		}
	}

	for _, dir := range s.fs.ListDirectories(s.work) {
		fmt.Fprintln(out, dirColor.Sprint(dir))
	}

	for _, file := range s.fs.ListFiles(s.work) {
		fmt.Fprintln(out, file)
	}

	return nil
}

func (s *Shell) cd(out console.Output, name string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <path>", name)
	}

	resolved := s.ResolvePath(args[0])
	if !s.fs.DirectoryExists(resolved) {
		return fmt.Errorf("%s: Directory not found.", args[0])
	}

	s.ChangeDirectory(resolved)
	return nil
}

func (s *Shell) cat(out console.Output, name string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <path>", name)
	}

	resolved := s.ResolvePath(args[0])
	text, err := s.fs.ReadAllText(resolved)
	if err != nil {
		fmt.Fprintf(out, "%s: %s: %s\n", name, resolved, err)
		return nil
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = fmt.Fprint(out, text)
	return err
}

func (s *Shell) pwd(out console.Output, name string, args []string) error {
	_, err := fmt.Fprintln(out, s.work)
	return err
}

func (s *Shell) help(out console.Output, name string, args []string) error {
	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	for _, builtin := range s.builtins.All() {
		fmt.Fprintf(tw, "%s\t%s\n", builtin.Name, builtin.Description)
	}
	return tw.Flush()
}

var errExitArgs = errors.New("too many arguments")

func (s *Shell) exit(out console.Output, name string, args []string) error {
	if len(args) > 0 {
		return errExitArgs
	}
	s.exited = true
	return nil
}
