package pandoc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Output formats supported by the rendering step.
const (
	FormatDocx = "docx"
	FormatPptx = "pptx"
)

// ConvertRequest describes a single markdown conversion.
type ConvertRequest struct {
	InputPath    string
	OutputPath   string
	Format       string
	ReferenceDoc string
	// Metadata becomes --metadata key=value flags, emitted in key order.
	Metadata map[string]string
}

// Converter defines the behaviour required by the rendering step.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps pandoc CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a pandoc client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("pandoc binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert executes pandoc, producing the requested output file.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("output path required")
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != FormatDocx && format != FormatPptx {
		return fmt.Errorf("unsupported output format %q", req.Format)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	convertCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		convertCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"--from", "markdown",
		"--to", format,
		"--output", req.OutputPath,
	}
	if ref := strings.TrimSpace(req.ReferenceDoc); ref != "" {
		args = append(args, "--reference-doc", ref)
	}
	for _, key := range sortedKeys(req.Metadata) {
		args = append(args, "--metadata", key+"="+req.Metadata[key])
	}
	args = append(args, req.InputPath)

	tail := newOutputTail(12)
	if err := c.exec.Run(convertCtx, c.binary, args, tail.Add); err != nil {
		return fmt.Errorf("pandoc convert: %w%s", err, tail.Suffix())
	}

	if _, err := os.Stat(req.OutputPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pandoc produced no output file%s", tail.Suffix())
	}
	return nil
}

// ExtractText converts a docx file to plain text on stdout. Used by the
// importer when a run starts from an uploaded office document.
func (c *Client) ExtractText(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("input path required")
	}
	extractCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var lines []string
	args := []string{"--from", "docx", "--to", "plain", path}
	err := c.exec.Run(extractCtx, c.binary, args, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return "", fmt.Errorf("pandoc extract: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// Version reports the installed pandoc version line.
func (c *Client) Version(ctx context.Context) (string, error) {
	var first string
	err := c.exec.Run(ctx, c.binary, []string{"--version"}, func(line string) {
		if first == "" {
			first = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return "", fmt.Errorf("pandoc version: %w", err)
	}
	if first == "" {
		return "", errors.New("pandoc version: no output")
	}
	return first, nil
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// outputTail keeps the last few diagnostic lines for error messages.
type outputTail struct {
	limit int
	lines []string
}

func newOutputTail(limit int) *outputTail {
	if limit <= 0 {
		limit = 8
	}
	return &outputTail{limit: limit}
}

func (t *outputTail) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == t.limit {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.limit-1]
	}
	t.lines = append(t.lines, line)
}

func (t *outputTail) Suffix() string {
	if len(t.lines) == 0 {
		return ""
	}
	return "; output: " + strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Converter = (*Client)(nil)
