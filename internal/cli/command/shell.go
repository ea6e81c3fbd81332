package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/medpanel/medpanel-go/internal/cli/config"
	"github.com/medpanel/medpanel-go/internal/cli/repl"
	"github.com/medpanel/medpanel-go/internal/infra/confloader"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
)

const loggedOutPrompt = "medpanel (logged out)> "

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not read or write the history file",
			},
		},
		Action: shellRun,
	}
}

func shellRun(c *cli.Context) error {
	st := stateFrom(c)
	if st.inShell {
		return errors.New("already in the shell")
	}

	rt, err := runtimeFor(c)
	if err != nil {
		return err
	}
	st.inShell = true
	defer func() { st.inShell = false }()

	// Prompts inside commands read from the same buffer as the shell.
	br := input(c)

	historyFile := repl.DefaultHistoryPath()
	if c.Bool("no-history") {
		historyFile = ""
	}

	if w := watchConfig(c, rt); w != nil {
		defer w.Stop()
	}

	app := c.App
	shell := repl.New(
		func(ctx context.Context, args []string) error {
			if args[0] == "shell" {
				return errors.New("already in the shell")
			}
			return app.RunContext(ctx, append([]string{app.Name}, args...))
		},
		repl.WithIO(br, app.Writer, app.ErrWriter),
		repl.WithCompleter(repl.NewCompleter(commandPaths(app.Commands, ""))),
		repl.WithHistory(repl.NewHistory(historyFile, repl.DefaultHistorySize)),
		repl.WithPrompt(func() string {
			if rt.LoggedIn(c.Context) {
				return repl.DefaultPrompt
			}
			return loggedOutPrompt
		}),
	)

	fmt.Fprintln(app.Writer, "MedPanel shell. Type 'help' for commands, 'cmd ?' to complete, 'exit' to quit.")
	return shell.Run(c.Context)
}

// commandPaths lists every command as typed in the shell, e.g. "patient list".
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		path := strings.TrimSpace(parent + " " + cmd.Name)
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	return paths
}

// watchConfig reloads the log level when the config file changes. Other
// settings apply from the next start.
func watchConfig(c *cli.Context, rt *Runtime) *confloader.Watcher {
	path := configPathFor(c)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Logger))
	if err != nil {
		rt.Logger.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(path); err != nil {
		rt.Logger.Warn("config file not watched", "path", path, "error", err)
		w.Stop()
		return nil
	}

	flags := ParseGlobalFlags(c)
	overrides := flags.overrides(c)
	w.OnChange(func(changed string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			rt.Logger.Warn("config reload failed", "path", changed, "error", err)
			return
		}
		if !flags.Verbose {
			logger.SetLevel(cfg.Log.Level)
		}
		rt.Logger.Info("config reloaded", "path", changed, "log_level", logger.GetLevel())
	})
	w.StartAsync()
	return w
}
