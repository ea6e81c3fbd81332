package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	API struct {
		URL     string        `koanf:"url"`
		Timeout time.Duration `koanf:"timeout"`
		RPS     float64       `koanf:"rps"`
	} `koanf:"api"`
	Session struct {
		Encrypt bool `koanf:"encrypt"`
	} `koanf:"session"`
}

var testDefaults = map[string]any{
	"api.url":         "http://localhost:8081/api",
	"api.timeout":     "30s",
	"api.rps":         0,
	"session.encrypt": true,
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	var cfg testConfig
	l := NewLoader(WithDefaults(testDefaults))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.URL != "http://localhost:8081/api" {
		t.Errorf("api.url = %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("api.timeout = %v", cfg.API.Timeout)
	}
	if !cfg.Session.Encrypt {
		t.Error("session.encrypt = false")
	}
	if l.FileLoaded() {
		t.Error("FileLoaded() = true without a file")
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
api:
  url: http://file:8081/api
  timeout: 10s
session:
  encrypt: false
`)
	t.Setenv("MEDPANEL_API_URL", "http://env:8081/api")

	var cfg testConfig
	l := NewLoader(WithDefaults(testDefaults), WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.URL != "http://env:8081/api" {
		t.Errorf("env should override file, got %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("file should override default, got %v", cfg.API.Timeout)
	}
	if cfg.Session.Encrypt {
		t.Error("file value false should override default true")
	}

	if err := l.LoadMap(map[string]any{"api.url": "http://flag:8081/api", "api.rps": 2.5}); err != nil {
		t.Fatal(err)
	}
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != "http://flag:8081/api" || cfg.API.RPS != 2.5 {
		t.Errorf("flags should override env, got %q rps=%v", cfg.API.URL, cfg.API.RPS)
	}
	if l.String("api.url") != "http://flag:8081/api" {
		t.Errorf("String() = %q", l.String("api.url"))
	}
}

func TestLoader_EnvTypes(t *testing.T) {
	t.Setenv("MEDPANEL_API_TIMEOUT", "5s")
	t.Setenv("MEDPANEL_SESSION_ENCRYPT", "false")
	t.Setenv("OTHER_API_URL", "ignored")

	var cfg testConfig
	if err := NewLoader(WithDefaults(testDefaults)).Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("api.timeout = %v", cfg.API.Timeout)
	}
	if cfg.Session.Encrypt {
		t.Error("session.encrypt should be false from env")
	}
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("TEST_API_URL", "http://custom/api")

	var cfg testConfig
	if err := NewLoader(WithEnvPrefix("TEST_")).Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != "http://custom/api" {
		t.Errorf("api.url = %q", cfg.API.URL)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	var cfg testConfig
	if err := NewLoader(WithOptionalConfigFile(missing)).Load(&cfg); err != nil {
		t.Errorf("optional missing file error = %v", err)
	}
	if err := NewLoader(WithConfigFile(missing)).Load(&cfg); err == nil {
		t.Error("required missing file should fail")
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
		t.Error("Load() should fail on invalid YAML")
	}
}

func TestMapProvider(t *testing.T) {
	got, err := mapProvider{"api.url": "x", "log.level": "debug"}.Read()
	if err != nil {
		t.Fatal(err)
	}
	api, ok := got["api"].(map[string]any)
	if !ok || api["url"] != "x" {
		t.Errorf("Read() = %v", got)
	}

	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
