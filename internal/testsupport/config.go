package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"prositor/internal/config"
)

// ConfigOption adjusts the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a ready-to-use config rooted in a per-test temp
// directory: placeholder API key, isolated output and log dirs, an ephemeral
// bind port, and notifications off. Options refine it from there.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test-key"
	cfgVal.Output.Dir = filepath.Join(base, "documents")
	cfgVal.Output.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.APIBind = "127.0.0.1:0"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLLMBaseURL points the completion client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithNtfyTopic sets the notification endpoint on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// pandocStub answers --version, writes the file named by --output, and prints
// a line of text otherwise, which covers both conversion and extraction calls.
const pandocStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "pandoc 3.1.9"
  exit 0
fi
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--output" ]; then
    out=$arg
  fi
  prev=$arg
done
if [ -n "$out" ]; then
  printf 'stub office document' > "$out"
else
  echo "Document extrait pour les tests."
fi
exit 0
`

// WithStubbedBinaries writes stub executables for the provided names into a
// fresh bin dir and prepends it to PATH for the test's lifetime. With no
// names, pandoc is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"pandoc"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(pandocStub), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Output.Dir)
}
