// Package shell implements the line-oriented command interface spoken over
// the serial console: a table of named commands with a fixed argument
// count, resolved once at startup.
package shell

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cjeanneret/LapseGo/internal/debug"
)

var (
	// ErrBadArgCount is returned when a command gets the wrong number of
	// arguments.
	ErrBadArgCount = errors.New("bad arg count")
	// ErrBadArgument is returned by handlers for arguments they cannot parse.
	ErrBadArgument = errors.New("bad argument")
	// ErrUnknownCommand is returned for names not in the table.
	ErrUnknownCommand = errors.New("unknown command")
)

// maxSuggestDistance bounds the edit distance of "did you mean" hints.
const maxSuggestDistance = 2

// HandlerFunc runs a command. Text written to out goes back to the user;
// a non-nil error marks the command as failed.
type HandlerFunc func(out io.Writer, args []string) error

// Command describes one entry of the dispatch table.
type Command struct {
	Name    string
	Args    []string // argument names, used for arity and usage
	Help    string
	Handler HandlerFunc
}

// Usage returns "name <arg>..." for help output.
func (c Command) Usage() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " <" + strings.Join(c.Args, "> <") + ">"
}

// Shell dispatches command lines to registered handlers and writes their
// output and errors to a single sink.
type Shell struct {
	out      io.Writer
	commands map[string]Command
	prompt   string
}

// New creates a shell writing to out. The built-in "help" command is
// registered.
func New(out io.Writer) *Shell {
	s := &Shell{
		out:      out,
		commands: make(map[string]Command),
	}
	_ = s.Register(Command{
		Name:    "help",
		Help:    "list commands",
		Handler: s.handleHelp,
	})
	return s
}

// SetPrompt sets the string written by Prompt. Empty disables it.
func (s *Shell) SetPrompt(p string) {
	s.prompt = p
}

// Prompt writes the prompt, if any.
func (s *Shell) Prompt() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
}

// Register adds a command. Names are case-sensitive and must be unique.
func (s *Shell) Register(cmd Command) error {
	if cmd.Name == "" || strings.ContainsAny(cmd.Name, " \t") {
		return fmt.Errorf("invalid command name %q", cmd.Name)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q: nil handler", cmd.Name)
	}
	if _, dup := s.commands[cmd.Name]; dup {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	s.commands[cmd.Name] = cmd
	return nil
}

// Names returns the registered command names, sorted.
func (s *Shell) Names() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one command line. Failures are reported to the output as
// "<command>: <reason>" and returned; they never stop the shell.
// Blank lines are ignored.
func (s *Shell) Dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	debug.Command(line)

	name, args := fields[0], fields[1:]
	cmd, ok := s.commands[name]
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnknownCommand, name)
		if hint := s.suggest(name); hint != "" {
			fmt.Fprintf(s.out, "%v (did you mean %q?)\n", err, hint)
		} else {
			fmt.Fprintf(s.out, "%v\n", err)
		}
		return err
	}

	if len(args) != len(cmd.Args) {
		return s.fail(name, ErrBadArgCount)
	}
	if err := cmd.Handler(s.out, args); err != nil {
		return s.fail(name, err)
	}
	return nil
}

// Report writes an input error that never reached a command, such as
// ErrLineTooLong, to the output.
func (s *Shell) Report(err error) {
	fmt.Fprintln(s.out, err)
}

func (s *Shell) fail(name string, err error) error {
	err = fmt.Errorf("%s: %w", name, err)
	fmt.Fprintln(s.out, err)
	return err
}

// suggest returns the closest command name within maxSuggestDistance.
func (s *Shell) suggest(name string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range s.Names() {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

func (s *Shell) handleHelp(out io.Writer, _ []string) error {
	width := 0
	names := s.Names()
	for _, name := range names {
		if n := len(s.commands[name].Usage()); n > width {
			width = n
		}
	}
	for _, name := range names {
		cmd := s.commands[name]
		fmt.Fprintf(out, "%-*s  %s\n", width, cmd.Usage(), cmd.Help)
	}
	return nil
}
