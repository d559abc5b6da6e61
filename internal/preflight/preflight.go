package preflight

import (
	"context"

	"prositor/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check that applies to cfg. Optional
// paths are only verified when configured; the completion API check runs
// regardless so a missing key surfaces before the first run.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Output directory", cfg.Output.Dir)}
	if cfg.Output.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Output.LogDir))
	}
	results = append(results, CheckPandoc(ctx, cfg.PandocBinary()))
	if cfg.Render.ReferenceDocx != "" {
		results = append(results, CheckFileReadable("Reference DOCX", cfg.Render.ReferenceDocx))
	}
	if cfg.Render.ReferencePptx != "" {
		results = append(results, CheckFileReadable("Reference PPTX", cfg.Render.ReferencePptx))
	}
	return append(results, CheckLLM(ctx, "LLM API", cfg.GetLLM()))
}
