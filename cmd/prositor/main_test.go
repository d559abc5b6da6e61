package main

import (
	"testing"
)

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"generate", "serve", "history", "import", "config", "deps", "test-notify"} {
		requireContains(t, out, name)
	}
}

func TestRootVersionFlag(t *testing.T) {
	out, _, err := runCLI(t, []string{"--version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, appVersion)
}
