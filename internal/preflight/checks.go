package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"prositor/internal/config"
	"prositor/internal/deps"
	"prositor/internal/services/llm"
)

const llmCheckTimeout = 30 * time.Second

// CheckLLM verifies the completion API end to end: one probe request
// against the configured endpoint, no retries. An empty key fails
// immediately without network I/O.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	ctx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetry(llm.RetryPolicy{MaxAttempts: 1}))
	if err := client.HealthCheck(ctx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckPandoc reports the renderer's pandoc binary as a preflight result.
func CheckPandoc(ctx context.Context, command string) Result {
	status := deps.CheckPandoc(ctx, command)
	return Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
}

// CheckDirectoryAccess verifies path is a directory this process can
// read, write and traverse.
func CheckDirectoryAccess(name, path string) Result {
	info, detail := statTarget(path)
	if detail != "" {
		return Result{Name: name, Detail: detail}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckFileReadable verifies path is a regular file this process can read.
func CheckFileReadable(name, path string) Result {
	info, detail := statTarget(path)
	if detail != "" {
		return Result{Name: name, Detail: detail}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path + " (readable)"}
}

// statTarget stats path and renders the two common failure modes.
func statTarget(path string) (os.FileInfo, string) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info, ""
	case os.IsNotExist(err):
		return nil, fmt.Sprintf("%s (error: does not exist)", path)
	default:
		return nil, fmt.Sprintf("%s (error: stat: %v)", path, err)
	}
}

// SystemDeps evaluates the external binaries with a version probe. The
// CLI deps command uses this for a thorough report.
func SystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return []deps.Status{
		deps.CheckPandoc(ctx, cfg.PandocBinary()),
	}
}

// SystemDepsQuick checks binary presence without spawning subprocesses.
// The HTTP status endpoint uses this to stay cheap per request.
func SystemDepsQuick(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Pandoc",
			Command:     cfg.PandocBinary(),
			Description: "Required for DOCX and PPTX rendering",
		},
	})
}

// summarizeLLMError folds timeout errors into a short operator-facing
// line; anything else surfaces verbatim.
func summarizeLLMError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "health check timed out (LLM API unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "health check timed out (LLM API unreachable)"
	default:
		return err.Error()
	}
}
