package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medpanel/medpanel-go/internal/infra/confloader"
)

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".medpanel", "config.yaml")
	}
	return filepath.Join(home, ".medpanel", "config.yaml")
}

// Load merges defaults, the config file, the environment and flags.
//
// An empty path means the default location, which may be absent. An explicit
// path must exist. Flags are keyed by dotted path ("api.url") and only the
// keys present override earlier sources.
func Load(path string, flags map[string]any) (*CLIConfig, error) {
	opts := []confloader.Option{
		confloader.WithDefaults(DefaultValues()),
	}
	if path == "" {
		opts = append(opts, confloader.WithOptionalConfigFile(DefaultConfigPath()))
	} else {
		opts = append(opts, confloader.WithConfigFile(ExpandHome(path)))
	}
	loader := confloader.NewLoader(opts...)

	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		if err := loader.LoadMap(flags); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.Session.Dir = ExpandHome(cfg.Session.Dir)
	cfg.Session.KeyFile = ExpandHome(cfg.Session.KeyFile)
	cfg.TLS.CAFile = ExpandHome(cfg.TLS.CAFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns the file Load reads for path.
func ResolvePath(path string) string {
	if path == "" {
		return DefaultConfigPath()
	}
	return ExpandHome(path)
}

// Save writes cfg as YAML. The file is private to the user since it may
// name proxies with credentials.
func Save(cfg *CLIConfig, path string) error {
	path = ResolvePath(path)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
