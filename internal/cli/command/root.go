package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/medpanel/medpanel-go/internal/cli/config"
	"github.com/medpanel/medpanel-go/internal/cli/output"
	"github.com/medpanel/medpanel-go/internal/client/apiclient"
	"github.com/medpanel/medpanel-go/internal/client/session"
	"github.com/medpanel/medpanel-go/internal/infra/buildinfo"
)

const stateKey = "medpanel.state"

var errNotLoggedIn = errors.New("not logged in; run `medpanel-cli auth login` first")

// redirectGrace is how long a one-shot command waits past the configured
// expiry delay for the redirect to finish.
const redirectGrace = 2 * time.Second

// Option configures the application.
type Option func(*appState)

// WithAfterFunc replaces the timer used for the expiry redirect.
func WithAfterFunc(f session.AfterFunc) Option {
	return func(s *appState) {
		s.afterFunc = f
	}
}

// WithTerminal replaces the terminal used for hidden password input.
func WithTerminal(t Terminal) Option {
	return func(s *appState) {
		s.term = t
	}
}

// appState is shared by every run of one App, so the shell reuses the
// configuration and Runtime of its first line.
type appState struct {
	afterFunc session.AfterFunc
	term      Terminal
	// rawIn is the app input before it was wrapped in a bufio.Reader.
	rawIn io.Reader

	cfg     *config.CLIConfig
	cfgPath string
	rt      *Runtime
	inShell bool
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	st := &appState{term: stdTerminal{}}
	for _, opt := range opts {
		opt(st)
	}

	return &cli.App{
		Name:    "medpanel-cli",
		Usage:   "Hospital admin panel client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AuthCommand(),
			WhatsAppCommand(),
			PatientCommand(),
			ProfileCommand(),
			ConfigCommand(),
			VersionCommand(),
			ShellCommand(),
		},
		Metadata: map[string]any{
			stateKey: st,
		},
		After: st.after,
		// Errors are printed by main or the shell; never exit from here.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.medpanel/config.yaml)",
		},
		&cli.StringFlag{
			Name:    "api-url",
			Aliases: []string{"s"},
			Usage:   "API base URL, e.g. http://localhost:8081/api",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log requests at debug level",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Print client metrics to stderr on exit",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Config  string
	APIURL  string
	Output  string
	Wide    bool
	Verbose bool
	Metrics bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		APIURL:  c.String("api-url"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
		Metrics: c.Bool("metrics"),
	}
}

// overrides maps explicitly set flags onto config keys.
func (f *GlobalFlags) overrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("api-url") {
		m["api.url"] = f.APIURL
	}
	if c.IsSet("output") {
		m["output.format"] = f.Output
	}
	if f.Verbose {
		m["log.level"] = "debug"
	}
	return m
}

func stateFrom(c *cli.Context) *appState {
	if st, ok := c.App.Metadata[stateKey].(*appState); ok {
		return st
	}
	st := &appState{term: stdTerminal{}}
	c.App.Metadata[stateKey] = st
	return st
}

// configFor loads the configuration on first use.
func configFor(c *cli.Context) (*config.CLIConfig, error) {
	st := stateFrom(c)
	if st.cfg != nil {
		return st.cfg, nil
	}

	flags := ParseGlobalFlags(c)
	cfg, err := config.Load(flags.Config, flags.overrides(c))
	if err != nil {
		return nil, err
	}
	st.cfg = cfg
	st.cfgPath = config.ResolvePath(flags.Config)
	return cfg, nil
}

// configPathFor returns the config file in use: --config on this line, else
// the one the shell was started with, else the default.
func configPathFor(c *cli.Context) string {
	if c.IsSet("config") {
		return config.ResolvePath(c.String("config"))
	}
	if st := stateFrom(c); st.cfgPath != "" {
		return st.cfgPath
	}
	return config.ResolvePath("")
}

// runtimeFor builds the Runtime on first use.
func runtimeFor(c *cli.Context) (*Runtime, error) {
	st := stateFrom(c)
	if st.rt != nil {
		return st.rt, nil
	}

	cfg, err := configFor(c)
	if err != nil {
		return nil, err
	}
	rt, err := NewRuntime(cfg, RuntimeOptions{
		Stderr:    c.App.ErrWriter,
		Verbose:   c.Bool("verbose"),
		AfterFunc: st.afterFunc,
	})
	if err != nil {
		return nil, err
	}
	st.rt = rt
	return rt, nil
}

// after lets a pending expiry redirect finish, then releases the Runtime.
// Inside the shell the Runtime outlives each line.
func (st *appState) after(c *cli.Context) error {
	if st.inShell || st.rt == nil {
		return nil
	}
	rt := st.rt
	st.rt = nil

	waitErr := rt.WaitRedirect(redirectGrace)
	if c.Bool("metrics") {
		if err := rt.Metrics.WriteText(c.App.ErrWriter); err != nil {
			rt.Logger.Warn("failed to write metrics", "error", err)
		}
	}
	return errors.Join(waitErr, rt.Close())
}

// withRuntime adapts an action that needs the API.
func withRuntime(fn func(c *cli.Context, rt *Runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := runtimeFor(c)
		if err != nil {
			return err
		}
		return explain(fn(c, rt))
	}
}

// requireLogin fails early when no credential is stored.
func requireLogin(c *cli.Context, rt *Runtime) error {
	if !rt.LoggedIn(c.Context) {
		return errNotLoggedIn
	}
	return nil
}

// explain appends server-side field errors to an API error's message.
func explain(err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if fields := apiErr.FieldMessages(); len(fields) > 0 {
			return fmt.Errorf("%w (%s)", err, strings.Join(fields, "; "))
		}
	}
	return err
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(f, c.Bool("wide")).Format(c.App.Writer, data)
}

// outputFormat returns the --output format, else the configured one.
func outputFormat(c *cli.Context) (output.Format, error) {
	format := c.String("output")
	if format == "" {
		if cfg, err := configFor(c); err == nil {
			format = cfg.Output.Format
		}
	}
	return output.ParseFormat(format)
}

// message prints a human status line. Machine formats get it as JSON or
// YAML so scripts can parse every command's output.
func message(c *cli.Context, msg string) error {
	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f == output.FormatTable {
		_, err := fmt.Fprintln(c.App.Writer, msg)
		return err
	}
	return render(c, map[string]string{"message": msg})
}

// input returns the app input as a *bufio.Reader, installing it on first
// use so later prompts and the shell see what the buffer already holds.
func input(c *cli.Context) *bufio.Reader {
	br, ok := c.App.Reader.(*bufio.Reader)
	if !ok {
		stateFrom(c).rawIn = c.App.Reader
		br = bufio.NewReader(c.App.Reader)
		c.App.Reader = br
	}
	return br
}

// readLine reads one line from the app's input.
func readLine(c *cli.Context, prompt string) (string, error) {
	fmt.Fprint(c.App.ErrWriter, prompt)

	line, err := input(c).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a secret without echo when the input is a terminal.
// Piped input, or a line already buffered by the shell, is read as a plain
// line instead.
func readPassword(c *cli.Context, prompt string) (string, error) {
	br := input(c)
	st := stateFrom(c)
	fd, ok := st.term.Fd(st.rawIn)
	if !ok || br.Buffered() > 0 {
		return readLine(c, prompt)
	}

	fmt.Fprint(c.App.ErrWriter, prompt)
	secret, err := st.term.ReadPassword(fd)
	fmt.Fprintln(c.App.ErrWriter)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(secret), "\r"), nil
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(c *cli.Context, question string) (bool, error) {
	answer, err := readLine(c, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
