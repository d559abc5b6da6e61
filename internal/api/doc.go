// Package api defines wire-format types and converters for the HTTP API
// layer, plus the application workflows shared by the CLI and the server.
// It translates internal run models into transport-friendly DTOs that web
// consumers can render without coupling to internal types.
//
// # Key Types
//
// RunState: live run representation with status, timing, and the result
// (documents, files, trace, warnings) once the run finished.
//
// HistoryRun: persisted run summary for history listings.
//
// ServerStatus: server version, model, dependency availability, active runs.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Converters
//
// FromResult: pipeline.Result -> RunResult with formatted trace timestamps.
//
// FromHistoryRun(s): history.Run -> HistoryRun with duration rendering.
//
// FromDependencyStatuses / FromLogEvents: slice conversions for status and
// log endpoints.
//
// # Workflows
//
// RunPipeline assembles the LLM client, renderers, and generation stages
// from configuration and executes one run, recording history and publishing
// notifications when wired. ImportFile extracts text and candidate
// documents from local files. TestNotification verifies the ntfy topic.
// The generate command calls RunPipeline synchronously; the server runs it
// in a goroutine per accepted request.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Timestamps use RFC3339 with milliseconds. Document maps are embedded
// directly since they are already plain JSON-shaped values.
package api
