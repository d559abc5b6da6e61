package api

import (
	"time"

	"prositor/internal/deps"
	"prositor/internal/history"
	"prositor/internal/logging"
	"prositor/internal/pipeline"
)

// FromTraceEntries converts run trace records to API DTOs.
func FromTraceEntries(entries []pipeline.Entry) []TraceEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]TraceEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, TraceEntry{
			Stage:     entry.Stage,
			Kind:      string(entry.Kind),
			Message:   entry.Message,
			Timestamp: FormatTime(entry.Timestamp),
		})
	}
	return out
}

// FromResult converts a pipeline result to its API representation.
func FromResult(result *pipeline.Result) *RunResult {
	if result == nil {
		return nil
	}
	return &RunResult{
		DocumentA: result.DocumentA,
		DocumentB: result.DocumentB,
		DocumentC: result.DocumentC,
		Files:     result.Files,
		Trace:     FromTraceEntries(result.Trace),
		Warnings:  result.Warnings,
	}
}

// FromHistoryRun converts a persisted run record to an API DTO.
func FromHistoryRun(run *history.Run) HistoryRun {
	if run == nil {
		return HistoryRun{}
	}
	dto := HistoryRun{
		RunID:        run.ID,
		Topic:        run.Topic,
		Slug:         run.Slug,
		Mode:         run.Mode,
		Status:       string(run.Status),
		FailureKind:  run.FailureKind,
		ErrorMessage: run.ErrorMessage,
		Files:        run.Files,
		Warnings:     run.Warnings,
		StartedAt:    FormatTime(run.StartedAt),
		FinishedAt:   FormatTime(run.FinishedAt),
	}
	if d := run.Duration(); d > 0 {
		dto.Duration = d.Round(time.Millisecond).String()
	}
	return dto
}

// RunStateFromHistory rebuilds a run state from its persisted record for
// runs the live registry no longer tracks. Documents and trace are not
// persisted, so the result only carries files and warnings.
func RunStateFromHistory(run *history.Run) RunState {
	if run == nil {
		return RunState{}
	}
	state := RunState{
		RunID:       run.ID,
		Topic:       run.Topic,
		Slug:        run.Slug,
		Mode:        run.Mode,
		Status:      string(run.Status),
		FailureKind: run.FailureKind,
		Error:       run.ErrorMessage,
		StartedAt:   FormatTime(run.StartedAt),
		FinishedAt:  FormatTime(run.FinishedAt),
	}
	if len(run.Files) > 0 || len(run.Warnings) > 0 {
		state.Result = &RunResult{Files: run.Files, Warnings: run.Warnings}
	}
	return state
}

// FromHistoryRuns converts a slice of persisted runs into API DTOs.
func FromHistoryRuns(runs []*history.Run) []HistoryRun {
	if len(runs) == 0 {
		return nil
	}
	out := make([]HistoryRun, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromHistoryRun(run))
	}
	return out
}

// FromDependencyStatuses converts dependency checks into API DTOs.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

// FromLogEvents converts stream hub events into API DTOs.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		details := make([]DetailField, 0, len(evt.Details))
		for _, detail := range evt.Details {
			details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
		}
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: FormatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			RunID:     evt.RunID,
			Stage:     evt.Stage,
			StepKind:  evt.StepKind,
			Fields:    evt.Fields,
			Details:   details,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
