package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"prositor/internal/pipeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// printTraceEntry writes one pipeline trace line. Result entries are
// highlighted when the writer is a terminal.
func printTraceEntry(out io.Writer, entry pipeline.Entry, colorize bool) {
	line := fmt.Sprintf("%-9s %s", entry.Stage, entry.Message)
	if colorize && entry.Kind == pipeline.KindResult {
		line = ansiGreen + line + ansiReset
	}
	fmt.Fprintln(out, line)
}

// printWarnings lists accumulated run warnings, colorized on terminals.
func printWarnings(out io.Writer, warnings []string, colorize bool) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(out, "Warnings:")
	for _, warning := range warnings {
		line := "  - " + warning
		if colorize {
			line = ansiYellow + line + ansiReset
		}
		fmt.Fprintln(out, line)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
