package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/medpanel/medpanel-go/internal/cli/config"
	"github.com/medpanel/medpanel-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the configuration file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration file, environment and flags",
				Action: configValidate,
			},
		},
	}
}

// configShow prints the merged configuration. Tables get one dotted key per
// row; JSON and YAML keep the nesting of the file.
func configShow(c *cli.Context) error {
	cfg, err := configFor(c)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		return render(c, tree)
	}
	flat, _ := maps.Flatten(tree, nil, ".")
	return render(c, flat)
}

func configPath(c *cli.Context) error {
	path := configPathFor(c)
	_, err := os.Stat(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		return render(c, struct {
			Path   string `json:"path"`
			Exists bool   `json:"exists"`
		}{path, exists})
	}

	if exists {
		_, err = fmt.Fprintln(c.App.Writer, path)
	} else {
		_, err = fmt.Fprintf(c.App.Writer, "%s (not created; using defaults)\n", path)
	}
	return err
}

func configInit(c *cli.Context) error {
	path := configPathFor(c)
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	return message(c, "Wrote "+path)
}

func configValidate(c *cli.Context) error {
	if _, err := configFor(c); err != nil {
		return err
	}
	return message(c, "Configuration OK.")
}
