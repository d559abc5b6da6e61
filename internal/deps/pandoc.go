package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CheckPandoc resolves the pandoc binary the renderer executes and probes its
// version. Explicit paths from config are honored as-is; bare names resolve
// through PATH.
func CheckPandoc(ctx context.Context, command string) Status {
	result := Status{
		Name:        "Pandoc",
		Description: "Required for DOCX and PPTX rendering",
	}

	command = strings.TrimSpace(command)
	if command == "" {
		command = "pandoc"
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		result.Command = command
		result.Detail = fmt.Sprintf("binary %q not found", command)
		return result
	}
	result.Command = resolved

	version, err := probeVersion(ctx, resolved)
	if err != nil {
		result.Detail = fmt.Sprintf("version probe failed: %v", err)
		return result
	}
	result.Available = true
	result.Detail = version
	return result
}

// probeVersion runs "<binary> --version" and returns the first output line.
func probeVersion(ctx context.Context, binary string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, binary, "--version").Output()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no version output")
	}
	return line, nil
}
