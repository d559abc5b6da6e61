package api

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"prositor/internal/config"
	"prositor/internal/document"
	"prositor/internal/generation"
	"prositor/internal/history"
	"prositor/internal/logging"
	"prositor/internal/notifications"
	"prositor/internal/pipeline"
	"prositor/internal/render"
	"prositor/internal/services"
	"prositor/internal/services/llm"
	"prositor/internal/services/pandoc"
)

// RunPipelineRequest describes one generation run. Config is required.
// Identity fields left blank fall back to the configured defaults, and a
// blank RunID gets a fresh UUID. Document carries the imported upstream
// document that the fromA and fromB modes start from.
type RunPipelineRequest struct {
	Config     *config.Config
	Logger     *slog.Logger
	RunID      string
	Topic      string
	Mode       string
	SkipRetour bool
	Student    string
	Program    string
	Year       string
	OutputDir  string
	Document   map[string]any

	// OnTrace receives every run trace entry as it is appended. Optional.
	OnTrace func(pipeline.Entry)
	// History records the run when set. Store failures are logged, never fatal.
	History *history.Store
	// Notifier publishes run lifecycle events when set. Best effort.
	Notifier notifications.Service
}

type RunPipelineResult struct {
	RunID  string
	Topic  string
	Slug   string
	Mode   pipeline.Mode
	Result *pipeline.Result
}

// RunPipeline assembles the LLM client, renderers, and generation stages
// from configuration and executes one orchestrated run. The pipeline error,
// if any, is returned unmodified; the result still carries everything the
// run produced before failing.
func RunPipeline(ctx context.Context, req RunPipelineRequest) (RunPipelineResult, error) {
	cfg := req.Config
	if cfg == nil {
		return RunPipelineResult{}, services.Wrap(services.ErrConfiguration, "run", "start",
			"configuration is required", nil)
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		return RunPipelineResult{}, services.Wrap(services.ErrValidation, "run", "start", err.Error(), nil)
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = strings.TrimSpace(document.StringField(req.Document, "topic"))
	}
	if topic == "" {
		return RunPipelineResult{}, services.Wrap(services.ErrValidation, "run", "start",
			"topic is required", nil)
	}
	switch mode {
	case pipeline.ModeFromA, pipeline.ModeFromB:
		if len(req.Document) == 0 {
			return RunPipelineResult{}, services.Wrap(services.ErrValidation, "run", "start",
				fmt.Sprintf("mode %s requires a source document", mode), nil)
		}
	default:
		if len(req.Document) != 0 {
			return RunPipelineResult{}, services.Wrap(services.ErrValidation, "run", "start",
				"mode full does not accept a source document", nil)
		}
	}

	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	runLogger := logging.WithContext(ctx, logger)

	llmCfg := cfg.GetLLM()
	completer := llm.NewClient(llm.Config{
		APIKey:  llmCfg.APIKey,
		BaseURL: llmCfg.BaseURL,
		Model:   llmCfg.Model,
		Referer: llmCfg.Referer,
		Title:   llmCfg.Title,
		Timeout: time.Duration(llmCfg.TimeoutSeconds) * time.Second,
	})
	converter, err := pandoc.New(cfg.PandocBinary(), cfg.Render.TimeoutSeconds)
	if err != nil {
		return RunPipelineResult{}, services.Wrap(services.ErrConfiguration, "run", "start",
			"create pandoc client", err)
	}

	stages := make([]pipeline.StageRunner, 0, 3)
	for _, docType := range document.Types() {
		renderer, err := render.NewFromConfig(docType, converter, cfg.Render)
		if err != nil {
			return RunPipelineResult{}, services.Wrap(services.ErrConfiguration, "run", "start",
				fmt.Sprintf("create %s renderer", docType), err)
		}
		stage, err := generation.NewStage(docType, completer, renderer,
			generation.WithLogger(logger),
			generation.WithTokenBudgets(llmCfg.MaxTokens, llmCfg.PlanMaxTokens),
		)
		if err != nil {
			return RunPipelineResult{}, services.Wrap(services.ErrConfiguration, "run", "start",
				fmt.Sprintf("create %s stage", docType), err)
		}
		stages = append(stages, stage)
	}

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}
	identity := pipeline.Identity{
		Topic:        topic,
		Student:      strings.TrimSpace(req.Student),
		Program:      strings.TrimSpace(req.Program),
		AcademicYear: strings.TrimSpace(req.Year),
	}
	if identity.Student == "" {
		identity.Student = cfg.Identity.Student
	}
	if identity.Program == "" {
		identity.Program = cfg.Identity.Program
	}
	if identity.AcademicYear == "" {
		identity.AcademicYear = cfg.Identity.AcademicYear
	}

	mem := pipeline.NewMemory(identity, outputDir)
	switch mode {
	case pipeline.ModeFromA:
		mem.SetDocument(document.Aller, req.Document)
	case pipeline.ModeFromB:
		mem.SetDocument(document.Retour, req.Document)
	}
	slug := mem.Identity().Slug

	if req.History != nil {
		if _, err := req.History.Begin(ctx, runID, topic, slug, string(mode)); err != nil {
			runLogger.Warn("history record creation failed", logging.Error(err))
		}
	}
	publish := func(event notifications.Event, payload notifications.Payload) {
		if req.Notifier == nil {
			return
		}
		if err := req.Notifier.Publish(ctx, event, payload); err != nil {
			runLogger.Warn("notification publish failed",
				logging.String("event", string(event)),
				logging.Error(err),
			)
		}
	}
	publish(notifications.EventRunStarted, notifications.Payload{
		"topic": topic,
		"mode":  string(mode),
	})

	// Stage result entries land after the rendered file is recorded, so the
	// file lookup below sees it.
	onTrace := func(entry pipeline.Entry) {
		if entry.Kind == pipeline.KindResult {
			docType := document.Type(entry.Stage)
			if path, ok := mem.File(docType); ok {
				publish(notifications.EventDocumentGenerated, notifications.Payload{
					"documentTitle": docType.Title(),
					"filename":      filepath.Base(path),
				})
			}
		}
		if req.OnTrace != nil {
			req.OnTrace(entry)
		}
	}

	start := time.Now()
	result, runErr := pipeline.NewOrchestrator(logger, stages...).Run(ctx, mem, pipeline.RunOptions{
		Mode:       mode,
		SkipRetour: req.SkipRetour,
		OnTrace:    onTrace,
	})
	duration := time.Since(start)

	out := RunPipelineResult{RunID: runID, Topic: topic, Slug: slug, Mode: mode, Result: result}
	var files map[string]string
	var warnings []string
	if result != nil {
		files = result.Files
		warnings = result.Warnings
	}

	if runErr != nil {
		if req.History != nil {
			if err := req.History.Fail(ctx, runID, services.FailureKind(runErr), runErr.Error(), files, warnings); err != nil {
				runLogger.Warn("history failure record failed", logging.Error(err))
			}
		}
		publish(notifications.EventRunFailed, notifications.Payload{
			"topic": topic,
			"error": runErr.Error(),
		})
		return out, runErr
	}

	if req.History != nil {
		if err := req.History.Complete(ctx, runID, files, warnings); err != nil {
			runLogger.Warn("history completion record failed", logging.Error(err))
		}
	}
	publish(notifications.EventRunCompleted, notifications.Payload{
		"topic":     topic,
		"documents": strconv.Itoa(len(files)),
		"warnings":  strconv.Itoa(len(warnings)),
		"duration":  duration.Round(time.Second).String(),
	})
	return out, nil
}
