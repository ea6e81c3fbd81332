package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))
	path := filepath.Join(env.dir, "fresh", "config.yaml")

	res := env.runRaw("", "--config", path, "config", "init")
	if res.err != nil {
		t.Fatalf("init: %v", res.err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	res = env.runRaw("", "--config", path, "config", "init")
	if res.err == nil || !strings.Contains(res.err.Error(), "already exists") {
		t.Errorf("second init err = %v", res.err)
	}

	res = env.runRaw("", "--config", path, "config", "init", "--force")
	if res.err != nil {
		t.Errorf("forced init: %v", res.err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var written map[string]any
	if err := yaml.Unmarshal(data, &written); err != nil {
		t.Fatalf("written file is not YAML: %v", err)
	}
	for _, section := range []string{"api", "session", "expiry", "log", "output"} {
		if _, ok := written[section]; !ok {
			t.Errorf("section %q missing from %s", section, data)
		}
	}
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))

	res := env.run("", "config", "show")
	if res.err != nil {
		t.Fatalf("show: %v", res.err)
	}
	for _, want := range []string{"api.url", env.backend.URL + "/api", "session.backend", "expiry.delay", "10ms"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("missing %q:\n%s", want, res.stdout)
		}
	}

	res = env.run("", "-o", "json", "--api-url", "http://override/api", "config", "show")
	if res.err != nil {
		t.Fatalf("show json: %v", res.err)
	}
	var cfg struct {
		API struct {
			URL string `json:"url"`
		} `json:"api"`
		Output struct {
			Format string `json:"format"`
		} `json:"output"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &cfg); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if cfg.API.URL != "http://override/api" {
		t.Errorf("api.url = %q, want flag override", cfg.API.URL)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("output.format = %q", cfg.Output.Format)
	}
}

func TestConfigShow_EnvOverride(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))
	t.Setenv("MEDPANEL_OUTPUT_FORMAT", "yaml")

	res := env.run("", "config", "show")
	if res.err != nil {
		t.Fatalf("show: %v", res.err)
	}
	var cfg map[string]any
	if err := yaml.Unmarshal([]byte(res.stdout), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, res.stdout)
	}
	if _, ok := cfg["api"].(map[string]any); !ok {
		t.Errorf("api section missing:\n%s", res.stdout)
	}
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))

	res := env.run("", "config", "path")
	if got := strings.TrimSpace(res.stdout); got != env.cfgPath {
		t.Errorf("path = %q, want %q", got, env.cfgPath)
	}

	res = env.runRaw("", "config", "path")
	want := filepath.Join(env.dir, ".medpanel", "config.yaml")
	if !strings.HasPrefix(res.stdout, want) || !strings.Contains(res.stdout, "not created") {
		t.Errorf("default path = %q, want %s (not created ...)", res.stdout, want)
	}
}

func TestConfigValidate(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))

	res := env.run("", "config", "validate")
	if res.err != nil || strings.TrimSpace(res.stdout) != "Configuration OK." {
		t.Errorf("validate = %q, %v", res.stdout, res.err)
	}

	bad := filepath.Join(env.dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res = env.runRaw("", "--config", bad, "config", "validate")
	if res.err == nil || !strings.Contains(res.err.Error(), "invalid config") {
		t.Errorf("err = %v, want invalid config", res.err)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))

	res := env.run("", "-o", "json", "version")
	if res.err != nil {
		t.Fatalf("version: %v", res.err)
	}
	var info struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if info.Version == "" || !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("info = %+v", info)
	}
}
