package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"prositor/internal/history"
	"prositor/internal/logging"
	"prositor/internal/notifications"
	"prositor/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the Prositor HTTP API on the configured bind address. The server
accepts generation requests, reports run state, streams logs, and serves the
persisted run history. A lock file refuses a second server on the same
configuration. Stop with SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx)
		},
	}
}

func runServer(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Output.LogDir, fmt.Sprintf("prositor-%s.log", stamp))
	eventsPath := filepath.Join(cfg.Output.LogDir, fmt.Sprintf("prositor-%s.events", stamp))
	hub := logging.NewStreamHub(4096)
	archive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if archive != nil {
		hub.AddSink(archive)
		defer archive.Close()
	}

	logger, err := logging.New(logging.Options{
		Level:            ctx.resolvedLogLevel(cfg),
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Stream:           hub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Output.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update prositor.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Output.LogDir, Pattern: "prositor-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Output.LogDir, Pattern: "prositor-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: cfg.Output.Dir, Pattern: "run-*.log"},
	)

	pidPath := filepath.Join(cfg.Output.LogDir, "prositor.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	srv, err := server.New(server.Options{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Notifier: notifications.NewService(cfg),
		Hub:      hub,
		Archive:  archive,
		Version:  appVersion,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("prositor server shutting down")
	srv.Stop()
	return nil
}

// ensureCurrentLogPointer keeps prositor.log pointing at the newest server
// log so tails survive restarts.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "prositor.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err == nil {
		return nil
	}
	return fmt.Errorf("link log pointer %s", current)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
