package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPrompt is shown while a session is active.
const DefaultPrompt = "medpanel> "

var builtins = []string{"exit", "quit", "history", "help"}

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	errOutput io.Writer
	prompt    func() string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and the output streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
		r.errOutput = errOut
	}
}

// WithPrompt sets a function called before each line to render the prompt.
func WithPrompt(fn func() string) Option {
	return func(r *REPL) {
		r.prompt = fn
	}
}

// WithCompleter sets the completer used for "?" lookups.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		r.completer = c
	}
}

// WithHistory sets the line history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a REPL that hands each line to exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		errOutput: os.Stderr,
		prompt:    func() string { return DefaultPrompt },
		exec:      exec,
		completer: NewCompleter(nil),
		history:   NewHistory("", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until exit, end of input or ctx is cancelled. History is
// loaded before the first prompt and saved on return.
func (r *REPL) Run(ctx context.Context) (err error) {
	if loadErr := r.history.Load(); loadErr != nil {
		fmt.Fprintf(r.errOutput, "Warning: history not loaded: %v\n", loadErr)
	}
	defer func() {
		if saveErr := r.history.Save(); saveErr != nil && err == nil {
			err = fmt.Errorf("save history: %w", saveErr)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt())

		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if errors.Is(readErr, io.EOF) && strings.TrimSpace(line) == "" {
			fmt.Fprintln(r.output)
			return nil
		}

		if r.Execute(ctx, line) {
			return nil
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
	}
}

// Execute runs one line and reports whether the shell should exit. Errors
// are printed, never returned, so one failed command does not end the
// session.
func (r *REPL) Execute(ctx context.Context, line string) (exit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if prefix, ok := strings.CutSuffix(line, "?"); ok {
		r.printCompletions(prefix)
		return false
	}

	r.history.Add(line)

	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.errOutput, "Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	}

	if err := r.exec(ctx, args); err != nil {
		fmt.Fprintf(r.errOutput, "Error: %v\n", err)
	}
	return false
}

func (r *REPL) printCompletions(prefix string) {
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "No commands match %q\n", strings.TrimSpace(prefix))
		return
	}
	for _, m := range matches {
		fmt.Fprintln(r.output, "  "+m)
	}
}
