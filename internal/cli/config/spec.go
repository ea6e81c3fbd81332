package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/medpanel/medpanel-go/internal/client/apiclient"
	"github.com/medpanel/medpanel-go/internal/client/session"
)

// Session store backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// CLIConfig is the CLI configuration.
type CLIConfig struct {
	API     APIConfig     `koanf:"api" yaml:"api"`
	Session SessionConfig `koanf:"session" yaml:"session"`
	Expiry  ExpiryConfig  `koanf:"expiry" yaml:"expiry"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Output  OutputConfig  `koanf:"output" yaml:"output"`
	TLS     TLSConfig     `koanf:"tls" yaml:"tls"`
	Proxy   ProxyConfig   `koanf:"proxy" yaml:"proxy"`
}

// APIConfig configures the backend endpoint.
type APIConfig struct {
	URL     string        `koanf:"url" yaml:"url"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// RPS limits outgoing requests per second; 0 disables the limiter.
	RPS   float64 `koanf:"rps" yaml:"rps"`
	Burst int     `koanf:"burst" yaml:"burst"`
}

// SessionConfig configures where the credential record lives.
type SessionConfig struct {
	Backend string `koanf:"backend" yaml:"backend"`
	Dir     string `koanf:"dir" yaml:"dir"`
	Encrypt bool   `koanf:"encrypt" yaml:"encrypt"`
	KeyFile string `koanf:"keyfile" yaml:"keyfile"`
}

// ExpiryConfig configures the session-expiry redirect.
type ExpiryConfig struct {
	Delay  time.Duration `koanf:"delay" yaml:"delay"`
	Target string        `koanf:"target" yaml:"target"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	Format string `koanf:"format" yaml:"format"`
}

// TLSConfig configures server certificate verification.
type TLSConfig struct {
	CAFile string `koanf:"cafile" yaml:"cafile"`
}

// ProxyConfig configures outbound proxies.
type ProxyConfig struct {
	HTTP    string `koanf:"http" yaml:"http"`
	HTTPS   string `koanf:"https" yaml:"https"`
	SOCKS5  string `koanf:"socks5" yaml:"socks5"`
	NoProxy string `koanf:"noproxy" yaml:"noproxy"`
}

// Default returns the default configuration. Paths are left unexpanded.
func Default() *CLIConfig {
	return &CLIConfig{
		API: APIConfig{
			URL:     apiclient.DefaultBaseURL,
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Session: SessionConfig{
			Backend: BackendBadger,
			Dir:     "~/.medpanel/session",
			Encrypt: true,
			KeyFile: "~/.medpanel/session.key",
		},
		Expiry: ExpiryConfig{
			Delay:  session.DefaultRedirectDelay,
			Target: session.DefaultRedirectTarget,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// DefaultValues returns Default keyed by dotted path, the form the loader
// merges.
func DefaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"api.url":         d.API.URL,
		"api.timeout":     d.API.Timeout,
		"api.rps":         d.API.RPS,
		"api.burst":       d.API.Burst,
		"session.backend": d.Session.Backend,
		"session.dir":     d.Session.Dir,
		"session.encrypt": d.Session.Encrypt,
		"session.keyfile": d.Session.KeyFile,
		"expiry.delay":    d.Expiry.Delay,
		"expiry.target":   d.Expiry.Target,
		"log.level":       d.Log.Level,
		"log.format":      d.Log.Format,
		"output.format":   d.Output.Format,
		"tls.cafile":      d.TLS.CAFile,
		"proxy.http":      d.Proxy.HTTP,
		"proxy.https":     d.Proxy.HTTPS,
		"proxy.socks5":    d.Proxy.SOCKS5,
		"proxy.noproxy":   d.Proxy.NoProxy,
	}
}

// Validate checks enumerated and numeric fields.
func (c *CLIConfig) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RPS < 0 {
		return fmt.Errorf("api.rps must not be negative")
	}
	if c.API.RPS > 0 && c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1 when api.rps is set")
	}

	switch c.Session.Backend {
	case BackendBadger:
		if c.Session.Dir == "" {
			return fmt.Errorf("session.dir is required for the badger backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("session.backend %q: want %s or %s", c.Session.Backend, BackendBadger, BackendMemory)
	}
	if c.Session.Encrypt && c.Session.KeyFile == "" {
		return fmt.Errorf("session.keyfile is required when session.encrypt is set")
	}

	if c.Expiry.Delay < 0 {
		return fmt.Errorf("expiry.delay must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	switch strings.ToLower(c.Output.Format) {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output.format %q: want table, json or yaml", c.Output.Format)
	}
	return nil
}
