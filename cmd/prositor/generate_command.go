package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prositor/internal/api"
	"prositor/internal/config"
	"prositor/internal/document"
	"prositor/internal/history"
	"prositor/internal/logging"
	"prositor/internal/notifications"
	"prositor/internal/pipeline"
	"prositor/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		topic      string
		mode       string
		skipRetour bool
		fromFile   string
		student    string
		program    string
		year       string
		outputDir  string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the document pipeline",
		Long: `Generate the PROSIT documents for a topic: the Prosit Aller brief (DOCX),
the Prosit Retour presentation (PPTX), and the CER report (DOCX).

Modes control where the pipeline starts:
  full   generate all three documents from the topic (default)
  fromA  start from an imported Prosit Aller, generate Retour and CER
  fromB  start from an imported Prosit Retour, generate the CER only

Examples:
  prositor generate --topic "Virtualisation des serveurs"
  prositor generate --topic "Virtualisation" --skip-retour
  prositor generate --mode fromB --from-file retour.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := newGenerateLogger(cfg, ctx.resolvedLogLevel(cfg), jsonOut)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			var doc map[string]any
			if path := strings.TrimSpace(fromFile); path != "" {
				imported, err := api.ImportFile(cmd.Context(), api.ImportFileRequest{
					Config: cfg,
					Logger: logger,
					Path:   path,
				})
				if err != nil {
					return err
				}
				if !imported.JSONLike || imported.Document == nil {
					return fmt.Errorf("%s does not contain a document export", path)
				}
				doc = imported.Document
			}

			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				logger.Warn("history store unavailable", logging.Error(err))
				store = nil
			} else {
				defer store.Close()
			}

			runID := uuid.NewString()
			runLogger, closeLog, _, err := logging.RunFileLogger(logger, resolveOutputDir(cfg, outputDir), runID)
			if err != nil {
				logger.Warn("run log file unavailable", logging.Error(err))
				runLogger = logger
				closeLog = func() error { return nil }
			}
			defer func() {
				_ = closeLog()
			}()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var onTrace func(pipeline.Entry)
			if !jsonOut {
				onTrace = func(entry pipeline.Entry) {
					printTraceEntry(out, entry, colorize)
				}
			}

			res, runErr := api.RunPipeline(cmd.Context(), api.RunPipelineRequest{
				Config:     cfg,
				Logger:     runLogger,
				RunID:      runID,
				Topic:      topic,
				Mode:       mode,
				SkipRetour: skipRetour,
				Student:    student,
				Program:    program,
				Year:       year,
				OutputDir:  outputDir,
				Document:   doc,
				OnTrace:    onTrace,
				History:    store,
				Notifier:   notifications.NewService(cfg),
			})

			if jsonOut {
				if err := writeJSON(cmd, generateStatePayload(res, runErr)); err != nil {
					return err
				}
				return runErr
			}

			printGeneratedFiles(out, res.Result)
			if res.Result != nil {
				printWarnings(out, res.Result.Warnings, colorize)
			}
			if runErr != nil {
				line := fmt.Sprintf("Run %s failed (%s)", res.RunID, services.FailureKind(runErr))
				if colorize {
					line = ansiRed + line + ansiReset
				}
				fmt.Fprintln(out, line)
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "PROSIT topic (required in full mode)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "full", "Pipeline mode: full, fromA, or fromB")
	cmd.Flags().BoolVar(&skipRetour, "skip-retour", false, "Skip the Prosit Retour presentation")
	cmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "Document export to inject for fromA/fromB modes")
	cmd.Flags().StringVar(&student, "student", "", "Student name override")
	cmd.Flags().StringVar(&program, "program", "", "Program name override")
	cmd.Flags().StringVar(&year, "year", "", "Academic year override")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory override")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run result as JSON")
	return cmd
}

// newGenerateLogger keeps stdout clean for --json by routing log records to
// the application log file only.
func newGenerateLogger(cfg *config.Config, level string, quiet bool) (*slog.Logger, error) {
	if !quiet {
		return logging.NewFromConfig(cfg)
	}
	outputs := []string{}
	if cfg.Output.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Output.LogDir, "prositor.log"))
	}
	if len(outputs) == 0 {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
	})
}

func resolveOutputDir(cfg *config.Config, override string) string {
	if dir := strings.TrimSpace(override); dir != "" {
		return dir
	}
	return cfg.Output.Dir
}

func generateStatePayload(res api.RunPipelineResult, runErr error) api.RunState {
	state := api.RunState{
		RunID:  res.RunID,
		Topic:  res.Topic,
		Slug:   res.Slug,
		Mode:   string(res.Mode),
		Status: "completed",
		Result: api.FromResult(res.Result),
	}
	if runErr != nil {
		state.Status = "failed"
		state.FailureKind = services.FailureKind(runErr)
		state.Error = runErr.Error()
	}
	return state
}

func printGeneratedFiles(out io.Writer, result *pipeline.Result) {
	if result == nil || len(result.Files) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Files))
	for _, docType := range document.Types() {
		if path, ok := result.Files[string(docType)]; ok {
			rows = append(rows, []string{docType.Title(), path})
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Document", "File"}, rows))
}
