package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"prositor/internal/api"
	"prositor/internal/testsupport"
)

func TestDepsReportsStubbedPandoc(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "Pandoc")
	requireContains(t, out, "OK")
	requireContains(t, out, "pandoc 3.1.9")
}

func TestDepsFailsWhenPandocMissing(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	cfg := testsupport.NewConfig(t)
	cfg.Render.PandocBinary = "prositor-missing-tool"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"deps"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "required dependencies are missing") {
		t.Fatalf("expected missing dependency error, got %v", err)
	}
	requireContains(t, out, "MISSING")
	requireContains(t, out, `binary "prositor-missing-tool" not found`)
}

func TestDepsJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"deps", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("deps --json: %v", err)
	}
	var resp struct {
		Dependencies []api.DependencyStatus `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode deps: %v\noutput: %q", err, out)
	}
	if len(resp.Dependencies) != 1 {
		t.Fatalf("expected one dependency, got %d", len(resp.Dependencies))
	}
	dep := resp.Dependencies[0]
	if dep.Name != "Pandoc" || !dep.Available {
		t.Fatalf("unexpected dependency %+v", dep)
	}
}
