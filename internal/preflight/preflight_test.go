package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"prositor/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileReadable_OK(t *testing.T) {
	f := filepath.Join(t.TempDir(), "reference.docx")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckFileReadable("test", f)
	if !result.Passed {
		t.Fatalf("expected pass for readable file, got: %s", result.Detail)
	}
}

func TestCheckFileReadable_Missing(t *testing.T) {
	result := CheckFileReadable("test", filepath.Join(t.TempDir(), "nope.docx"))
	if result.Passed {
		t.Fatal("expected failure for missing file")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckFileReadable_Dir(t *testing.T) {
	result := CheckFileReadable("test", t.TempDir())
	if result.Passed {
		t.Fatal("expected failure for directory path")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM API", config.LLMConfig{})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
	if result.Detail != "API key missing" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM API", config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM API", config.LLMConfig{
		APIKey:  "bad-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	pandocStub := filepath.Join(t.TempDir(), "pandoc")
	script := []byte("#!/bin/sh\necho \"pandoc 3.1.9\"\nexit 0\n")
	if err := os.WriteFile(pandocStub, script, 0o755); err != nil {
		t.Fatalf("write pandoc stub: %v", err)
	}

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Output.LogDir = t.TempDir()
	cfg.Render.PandocBinary = pandocStub
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	// Output dir, log dir, pandoc, and the completion API check.
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Name == "LLM API" {
			if r.Passed {
				t.Error("expected LLM check to fail without an API key")
			}
			continue
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_ChecksReferenceDocsWhenConfigured(t *testing.T) {
	pandocStub := filepath.Join(t.TempDir(), "pandoc")
	script := []byte("#!/bin/sh\necho \"pandoc 3.1.9\"\nexit 0\n")
	if err := os.WriteFile(pandocStub, script, 0o755); err != nil {
		t.Fatalf("write pandoc stub: %v", err)
	}
	refDocx := filepath.Join(t.TempDir(), "reference.docx")
	if err := os.WriteFile(refDocx, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Output.LogDir = t.TempDir()
	cfg.Render.PandocBinary = pandocStub
	cfg.Render.ReferenceDocx = refDocx
	cfg.Render.ReferencePptx = filepath.Join(t.TempDir(), "missing.pptx")
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	var sawDocx, sawPptx bool
	for _, r := range results {
		switch r.Name {
		case "Reference DOCX":
			sawDocx = true
			if !r.Passed {
				t.Errorf("expected reference DOCX check to pass: %s", r.Detail)
			}
		case "Reference PPTX":
			sawPptx = true
			if r.Passed {
				t.Error("expected reference PPTX check to fail for missing file")
			}
		}
	}
	if !sawDocx || !sawPptx {
		t.Fatalf("expected both reference checks in results, got %#v", results)
	}
}

func TestSystemDepsQuickReportsConfiguredBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Render.PandocBinary = "clearly-not-present-pandoc"
	t.Setenv("PATH", "")

	statuses := SystemDepsQuick(&cfg)
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Name != "Pandoc" {
		t.Fatalf("unexpected status name: %s", statuses[0].Name)
	}
	if statuses[0].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
}
