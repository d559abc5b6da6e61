package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prositor/internal/document"
	"prositor/internal/logging"
	"prositor/internal/services"
)

// StageRunner is the contract the orchestrator needs from each generation
// stage. Run reads upstream documents from the memory and leaves the stage's
// own document, rendered file path, trace entries, and warnings behind.
type StageRunner interface {
	Document() document.Type
	Run(ctx context.Context, mem *Memory) error
}

// RunOptions select the stages to execute and receive live trace entries.
type RunOptions struct {
	Mode       Mode
	SkipRetour bool
	// OnTrace receives every appended trace entry as it happens. Optional.
	OnTrace func(Entry)
}

// Result is the caller-facing outcome of a run. Document slots are nil when
// the corresponding stage did not execute; on failure the result still
// carries everything produced before the failing stage.
type Result struct {
	DocumentA map[string]any    `json:"documentA,omitempty"`
	DocumentB map[string]any    `json:"documentB,omitempty"`
	DocumentC map[string]any    `json:"documentC,omitempty"`
	Files     map[string]string `json:"files"`
	Trace     []Entry           `json:"trace"`
	Warnings  []string          `json:"warnings"`
}

// Orchestrator sequences generation stages over a shared Memory. It performs
// no generation or validation itself.
type Orchestrator struct {
	logger *slog.Logger
	stages map[document.Type]StageRunner
}

// NewOrchestrator wires the available stage runners.
func NewOrchestrator(logger *slog.Logger, stages ...StageRunner) *Orchestrator {
	logger = logging.NewComponentLogger(logger, "pipeline")
	index := make(map[document.Type]StageRunner, len(stages))
	for _, stage := range stages {
		if stage == nil {
			continue
		}
		index[stage.Document()] = stage
	}
	return &Orchestrator{logger: logger, stages: index}
}

// Run executes the stage plan for the requested mode. Fatal stage errors
// propagate unmodified; the returned result still carries every document and
// file produced before the failure, and the summary trace entry is emitted
// either way.
func (o *Orchestrator) Run(ctx context.Context, mem *Memory, opts RunOptions) (*Result, error) {
	if mem == nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "run memory required", nil)
	}
	plan, err := stagePlan(opts.Mode, opts.SkipRetour)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", err.Error(), nil)
	}
	runStart := time.Now()
	logger := logging.WithContext(ctx, o.logger)
	mem.SetObserver(func(entry Entry) {
		o.mirror(logger, entry)
		if opts.OnTrace != nil {
			opts.OnTrace(entry)
		}
	})
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("mode", string(opts.Mode)),
		logging.Bool("skip_retour", opts.SkipRetour),
		logging.String("topic", mem.Identity().Topic),
	)

	for _, docType := range plan {
		if err := ctx.Err(); err != nil {
			o.summarize(mem)
			return o.resultFrom(mem), err
		}
		stage, ok := o.stages[docType]
		if !ok {
			err := services.Wrap(services.ErrConfiguration, "pipeline", "run",
				fmt.Sprintf("no stage registered for document %s", docType), nil)
			o.summarize(mem)
			return o.resultFrom(mem), err
		}

		stageCtx := services.WithStage(ctx, string(docType))
		stageLogger := logging.WithContext(stageCtx, o.logger)
		stageStart := time.Now()
		stageLogger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldDocument, string(docType)),
		)

		if err := stage.Run(stageCtx, mem); err != nil {
			if errors.Is(err, context.Canceled) {
				stageLogger.Debug("stage interrupted by cancellation")
			} else {
				logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
					logging.Alert("stage_failure"),
					logging.String(logging.FieldErrorCode, services.FailureKind(err)),
					logging.Error(err),
					logging.Duration("stage_duration", time.Since(stageStart)),
				)
			}
			o.summarize(mem)
			return o.resultFrom(mem), err
		}

		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String(logging.FieldDocument, string(docType)),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	o.summarize(mem)
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("documents_generated", len(mem.Files())),
		logging.Int("warnings", len(mem.Warnings())),
		logging.Duration("run_duration", time.Since(runStart)),
	)
	return o.resultFrom(mem), nil
}

// mirror forwards a trace entry to slog so file logs and the stream hub
// carry the run narrative. Results surface at info; the inner
// thought/action/observation steps stay at debug.
func (o *Orchestrator) mirror(logger *slog.Logger, entry Entry) {
	attrs := []any{
		logging.String(logging.FieldStage, entry.Stage),
		logging.String(logging.FieldStepKind, string(entry.Kind)),
		logging.String(logging.FieldEventType, "trace"),
	}
	if entry.Kind == KindResult {
		logger.Info(entry.Message, attrs...)
		return
	}
	logger.Debug(entry.Message, attrs...)
}

// summarize appends the closing trace entry counting rendered files and
// warnings. Runs end with this entry regardless of how far they got.
func (o *Orchestrator) summarize(mem *Memory) {
	files := len(mem.Files())
	warnings := len(mem.Warnings())
	mem.Append("pipeline", KindResult, fmt.Sprintf(
		"Exécution terminée : %d document(s) généré(s), %d avertissement(s)",
		files, warnings,
	))
}

func (o *Orchestrator) resultFrom(mem *Memory) *Result {
	result := &Result{
		Files:    mem.Files(),
		Trace:    mem.Trace(),
		Warnings: mem.Warnings(),
	}
	if doc, ok := mem.Document(document.Aller); ok {
		result.DocumentA = doc
	}
	if doc, ok := mem.Document(document.Retour); ok {
		result.DocumentB = doc
	}
	if doc, ok := mem.Document(document.CER); ok {
		result.DocumentC = doc
	}
	return result
}
