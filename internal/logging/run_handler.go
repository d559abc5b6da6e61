package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// runIDHandler wraps another handler to inject a run_id attribute into all records.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

func newRunIDHandler(base slog.Handler, runID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &runIDHandler{
		base:  base,
		runID: runID,
	}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{
		base:  h.base.WithAttrs(attrs),
		runID: h.runID,
	}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{
		base:  h.base.WithGroup(name),
		runID: h.runID,
	}
}

// RunFileLogger tees base into a per-run debug log file under dir. Every record
// written to the file carries the run_id attribute. The returned closer
// releases the file handle; the returned path points at the run log.
func RunFileLogger(base *slog.Logger, dir, runID string) (*slog.Logger, func() error, string, error) {
	if dir == "" || runID == "" {
		return base, func() error { return nil }, "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("create run log directory: %w", err)
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.log", short))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open run log %s: %w", path, err)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	fileHandler := newRunIDHandler(newConsoleHandler(file, levelVar, false), runID)

	var logger *slog.Logger
	if base != nil {
		logger = TeeLogger(base, fileHandler)
	} else {
		logger = slog.New(fileHandler)
	}
	return logger, file.Close, path, nil
}
