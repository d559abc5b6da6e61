package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"prositor/internal/api"
	"prositor/internal/document"
	"prositor/internal/importer"
	"prositor/internal/logging"
	"prositor/internal/pipeline"
	"prositor/internal/preflight"
)

// maxImportBytes caps uploaded document size.
const maxImportBytes = 10 << 20

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := api.ServerStatus{
		Version:      s.version,
		Model:        s.cfg.LLM.Model,
		OutputDir:    s.cfg.Output.Dir,
		ActiveRuns:   s.runs.active(),
		Dependencies: api.FromDependencyStatuses(preflight.SystemDepsQuick(s.cfg)),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.GenerateRequest
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = strings.TrimSpace(document.StringField(req.Document, "topic"))
	}
	if topic == "" {
		s.writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	switch mode {
	case pipeline.ModeFromA, pipeline.ModeFromB:
		if len(req.Document) == 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("mode %s requires a source document", mode))
			return
		}
	default:
		if len(req.Document) != 0 {
			s.writeError(w, http.StatusBadRequest, "mode full does not accept a source document")
			return
		}
	}

	runID := uuid.NewString()
	s.runs.begin(runID, topic, string(mode))
	logging.WithContext(r.Context(), s.log()).Info("generation run accepted",
		logging.String(logging.FieldRunID, runID),
		logging.String("mode", string(mode)),
	)
	go s.executeRun(runID, req)

	s.writeJSON(w, http.StatusAccepted, api.GenerateResponse{RunID: runID})
}

// executeRun drives one accepted generation request to completion in the
// background. Run state transitions land in the registry; persistence and
// notifications ride along inside the pipeline workflow.
func (s *Server) executeRun(runID string, req api.GenerateRequest) {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	runLogger, closeLog, logPath, err := logging.RunFileLogger(s.logger, s.cfg.Output.Dir, runID)
	if err != nil {
		s.log().Warn("run log file unavailable", logging.Error(err))
		runLogger = s.logger
		closeLog = func() error { return nil }
	} else if logPath != "" {
		s.log().Debug("run log file opened", logging.String("path", logPath))
	}
	defer func() {
		_ = closeLog()
	}()

	res, err := api.RunPipeline(ctx, api.RunPipelineRequest{
		Config:     s.cfg,
		Logger:     runLogger,
		RunID:      runID,
		Topic:      req.Topic,
		Mode:       req.Mode,
		SkipRetour: req.SkipRetour,
		Student:    req.Student,
		Program:    req.Program,
		Year:       req.Year,
		Document:   req.Document,
		History:    s.store,
		Notifier:   s.notifier,
	})
	if err != nil {
		s.runs.fail(runID, res, err)
		return
	}
	s.runs.complete(runID, res)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if state, ok := s.runs.get(id); ok {
		s.writeJSON(w, http.StatusOK, state)
		return
	}
	if s.store != nil {
		run, err := s.store.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run != nil {
			s.writeJSON(w, http.StatusOK, api.RunStateFromHistory(run))
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "run not found")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, api.HistoryResponse{Runs: nil})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Runs: api.FromHistoryRuns(runs)})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.hub == nil && s.archive == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	runFilter := strings.TrimSpace(query.Get("runId"))

	var (
		events []logging.LogEvent
		next   uint64
	)

	// Events evicted from the hub buffer are replayed from the archive.
	if s.archive != nil && since > 0 {
		firstSeq := uint64(0)
		if s.hub != nil {
			firstSeq = s.hub.FirstSequence()
		}
		if s.hub == nil || (firstSeq > 0 && since < firstSeq) {
			archived, cursor, err := s.archive.ReadSince(since, limit)
			if err != nil {
				logging.WithContext(r.Context(), s.log()).Warn("log archive read failed", logging.Error(err))
			} else if len(archived) > 0 {
				events = archived
				next = cursor
			}
		}
	}
	if tail && since == 0 && !follow && s.hub != nil {
		events, next = s.hub.Tail(limit)
	} else if len(events) == 0 && s.hub != nil {
		fetched, cursor, err := s.hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		events = fetched
		next = cursor
	}

	if runFilter != "" {
		filtered := events[:0]
		for _, evt := range events {
			if evt.RunID == runFilter {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}

	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: api.FromLogEvents(events),
		Next:   next,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		data     []byte
		filename string
	)
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
			return
		}
		filename = header.Filename
	} else {
		var err error
		data, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
			return
		}
		filename = strings.TrimSpace(r.URL.Query().Get("filename"))
		if filename == "" {
			s.writeError(w, http.StatusBadRequest, "filename query parameter required")
			return
		}
	}

	extraction, err := s.imp.FromBytes(r.Context(), data, filename)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	resp := api.ImportResponse{Text: extraction.Text, JSONLike: extraction.JSONLike}
	if extraction.JSONLike {
		if doc, docErr := importer.Document(extraction.Text); docErr == nil {
			resp.Document = doc
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
