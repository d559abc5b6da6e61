package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prositor/internal/api"
	"prositor/internal/document"
	"prositor/internal/testsupport"
	"prositor/internal/textutil"
)

func TestGenerateFromRetourExport(t *testing.T) {
	llm := testsupport.ScriptedCompletions(t, planJSON, cerDraft(t, "Pare-feu applicatif"))
	env := setupCLITestEnv(t, testsupport.WithLLMBaseURL(llm.URL))

	exportPath := writeDocumentExport(t, testsupport.BaseDir(env.cfg), "Pare-feu applicatif")

	out, _, err := runCLI(t, []string{"generate", "--mode", "fromB", "--from-file", exportPath}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	requireContains(t, out, "Exécution terminée")
	requireContains(t, out, "Compte d'Étude et de Recherche")
	requireContains(t, out, ".docx")

	rendered := document.OutputPath(env.cfg.Output.Dir, document.CER, textutil.Slug("Pare-feu applicatif"))
	if _, err := os.Stat(rendered); err != nil {
		t.Fatalf("expected rendered CER at %s: %v", rendered, err)
	}

	runLogs, err := filepath.Glob(filepath.Join(env.cfg.Output.Dir, "run-*.log"))
	if err != nil {
		t.Fatalf("glob run logs: %v", err)
	}
	if len(runLogs) != 1 {
		t.Fatalf("expected one run log in output dir, got %v", runLogs)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Pare-feu applicatif")
	requireContains(t, out, "fromB")
	requireContains(t, out, "completed")
}

func TestGenerateJSONOutput(t *testing.T) {
	llm := testsupport.ScriptedCompletions(t, planJSON, cerDraft(t, "Supervision réseau"))
	env := setupCLITestEnv(t, testsupport.WithLLMBaseURL(llm.URL))

	exportPath := writeDocumentExport(t, testsupport.BaseDir(env.cfg), "Supervision réseau")

	out, _, err := runCLI(t, []string{"generate", "--mode", "fromB", "--from-file", exportPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("generate --json: %v", err)
	}

	var state api.RunState
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("decode run state: %v\noutput: %q", err, out)
	}
	if state.Status != "completed" {
		t.Fatalf("status = %q, want completed", state.Status)
	}
	if state.RunID == "" {
		t.Fatal("expected run id in JSON output")
	}
	if state.Topic != "Supervision réseau" {
		t.Fatalf("topic = %q", state.Topic)
	}
	if state.Result == nil || state.Result.Files["cer"] == "" {
		t.Fatalf("expected cer file in result, got %+v", state.Result)
	}
	if _, err := os.Stat(state.Result.Files["cer"]); err != nil {
		t.Fatalf("expected rendered file: %v", err)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	exportPath := writeDocumentExport(t, testsupport.BaseDir(env.cfg), "Virtualisation")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing topic", []string{"generate"}, "topic is required"},
		{"unknown mode", []string{"generate", "--topic", "Virtualisation", "--mode", "sideways"}, "unknown pipeline mode"},
		{"fromB without document", []string{"generate", "--mode", "fromB", "--topic", "Virtualisation"}, "requires a source document"},
		{"full with document", []string{"generate", "--topic", "Virtualisation", "--from-file", exportPath}, "does not accept a source document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestGenerateRejectsNonExportFile(t *testing.T) {
	env := setupCLITestEnv(t)

	notesPath := filepath.Join(testsupport.BaseDir(env.cfg), "notes.md")
	if err := os.WriteFile(notesPath, []byte("Des notes de séance sans structure JSON."), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	_, _, err := runCLI(t, []string{"generate", "--mode", "fromB", "--from-file", notesPath}, env.configPath)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "does not contain a document export") {
		t.Fatalf("error %q does not mention missing export", err.Error())
	}
}
