package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"prositor/internal/config"
	"prositor/internal/testsupport"
)

const planJSON = `{"topicsToDeepen":["approfondissement"],"gaps":[],"detailLevel":"standard"}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLITestEnv builds a config backed by temp directories, stubs pandoc on
// PATH, and writes the TOML file commands load through --config. API key env
// vars are cleared so the file value stays authoritative.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[output]
dir = %q
log_dir = %q

[llm]
api_key = %q
base_url = %q

[render]
pandoc_binary = %q

[server]
api_bind = %q

[notifications]
ntfy_topic = %q
`,
		cfg.Output.Dir,
		cfg.Output.LogDir,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.Render.PandocBinary,
		cfg.Server.APIBind,
		cfg.Notifications.NtfyTopic,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeDocumentExport stages a minimal document export file for --from-file.
func writeDocumentExport(t *testing.T, dir, topic string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"topic": topic})
	if err != nil {
		t.Fatalf("marshal document export: %v", err)
	}
	path := filepath.Join(dir, "retour.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write document export: %v", err)
	}
	return path
}

// cerDraft returns a scripted CER draft passing every validation rule, so a
// scripted run completes without a repair round.
func cerDraft(t *testing.T, topic string) string {
	t.Helper()
	paragraph := strings.Repeat("La démarche PROSIT confronte les hypothèses du groupe aux contraintes techniques relevées pendant l'étude. ", 3)
	doc := map[string]any{
		"topic":        topic,
		"introduction": paragraph + "Ce rapport synthétise la démarche suivie et les résultats obtenus.",
		"sections": []any{
			map[string]any{"heading": "Analyse du besoin", "content": paragraph + "Le contexte impose des exigences strictes de disponibilité."},
			map[string]any{"heading": "Étude des solutions", "content": paragraph + "Trois solutions candidates ont été comparées sur des critères mesurables."},
			map[string]any{"heading": "Mise en œuvre", "content": paragraph + "La maquette valide le comportement attendu en conditions réelles."},
			map[string]any{"heading": "Retour d'expérience", "content": paragraph + "Les écarts constatés alimentent les préconisations finales."},
		},
		"conclusion": "L'étude confirme la pertinence de la solution retenue et ouvre des pistes d'approfondissement pour les prochains prosits.",
		"references": []string{
			"Support de cours CESI",
			"Documentation officielle du projet",
			"Guide ANSSI correspondant au thème",
		},
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal cer draft: %v", err)
	}
	return string(encoded)
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
