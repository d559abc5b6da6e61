package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"prositor/internal/config"
	"prositor/internal/history"
	"prositor/internal/importer"
	"prositor/internal/logging"
	"prositor/internal/notifications"
	"prositor/internal/services"
	"prositor/internal/services/pandoc"
)

// Options carries the collaborators a Server needs. Config is required;
// Store, Notifier, Hub, and Archive are optional and the matching endpoints
// degrade gracefully without them.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *history.Store
	Notifier notifications.Service
	Hub      *logging.StreamHub
	Archive  *logging.EventArchive
	Version  string
}

// Server exposes the generation pipeline over HTTP and enforces
// single-instance execution through a lock file.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	notifier notifications.Service
	hub      *logging.StreamHub
	archive  *logging.EventArchive
	imp      *importer.Importer
	version  string

	runs *runRegistry

	lockPath string
	lock     *flock.Flock

	bind     string
	listener net.Listener
	server   *http.Server
	running  atomic.Bool
	runCtx   context.Context
}

// New constructs a server from configuration. It does not listen yet.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("server requires config")
	}
	bind := strings.TrimSpace(cfg.Server.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	converter, err := pandoc.New(cfg.PandocBinary(), cfg.Render.TimeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("create pandoc client: %w", err)
	}
	imp, err := importer.New(converter)
	if err != nil {
		return nil, fmt.Errorf("create importer: %w", err)
	}

	lockDir := cfg.Output.LogDir
	if strings.TrimSpace(lockDir) == "" {
		lockDir = cfg.Output.Dir
	}
	lockPath := filepath.Join(lockDir, "prositor.lock")

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    opts.Store,
		notifier: opts.Notifier,
		hub:      opts.Hub,
		archive:  opts.Archive,
		imp:      imp,
		version:  strings.TrimSpace(opts.Version),
		runs:     newRunRegistry(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		bind:     bind,
	}

	token := strings.TrimSpace(cfg.Server.APIToken)
	route := func(h http.HandlerFunc) http.HandlerFunc {
		return requestIDMiddleware(authMiddleware(token, h))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", route(srv.handleStatus))
	mux.HandleFunc("/api/generate", route(srv.handleGenerate))
	mux.HandleFunc("/api/runs/", route(srv.handleRun))
	mux.HandleFunc("/api/history", route(srv.handleHistory))
	mux.HandleFunc("/api/logs", route(srv.handleLogs))
	mux.HandleFunc("/api/import", route(srv.handleImport))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start acquires the instance lock and begins serving. The server shuts
// down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another prositor server instance is already running")
	}

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.runCtx = ctx

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.running.Store(true)
	s.log().Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
	)
	return nil
}

// Stop shuts the HTTP server down and releases the instance lock.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if err := s.lock.Unlock(); err != nil {
		s.log().Warn("failed to release instance lock", logging.Error(err))
	}
	s.running.Store(false)
	s.log().Info("api server stopped")
}

// Addr reports the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// LockPath reports the instance lock file location.
func (s *Server) LockPath() string {
	return s.lockPath
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service sentinels onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrExternalTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "server")
}
