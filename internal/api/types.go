package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TraceEntry is one run trace record in a transport-friendly format.
type TraceEntry struct {
	Stage     string `json:"stage"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RunResult carries the documents and files produced by a run.
type RunResult struct {
	DocumentA map[string]any    `json:"documentA,omitempty"`
	DocumentB map[string]any    `json:"documentB,omitempty"`
	DocumentC map[string]any    `json:"documentC,omitempty"`
	Files     map[string]string `json:"files"`
	Trace     []TraceEntry      `json:"trace"`
	Warnings  []string          `json:"warnings"`
}

// RunState reports a run's live status. Result is set once the run finished,
// including the partial result of a failed run.
type RunState struct {
	RunID       string     `json:"runId"`
	Topic       string     `json:"topic"`
	Slug        string     `json:"slug,omitempty"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	FailureKind string     `json:"failureKind,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   string     `json:"startedAt,omitempty"`
	FinishedAt  string     `json:"finishedAt,omitempty"`
	Result      *RunResult `json:"result,omitempty"`
}

// GenerateRequest asks the server to start a pipeline run. Document carries
// an imported upstream document for fromA/fromB modes.
type GenerateRequest struct {
	Topic      string         `json:"topic"`
	Mode       string         `json:"mode,omitempty"`
	SkipRetour bool           `json:"skipRetour,omitempty"`
	Student    string         `json:"student,omitempty"`
	Program    string         `json:"program,omitempty"`
	Year       string         `json:"year,omitempty"`
	Document   map[string]any `json:"document,omitempty"`
}

// GenerateResponse returns the identifier of the accepted run.
type GenerateResponse struct {
	RunID string `json:"runId"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// ServerStatus aggregates server runtime information for API consumers.
type ServerStatus struct {
	Version      string             `json:"version"`
	Model        string             `json:"model"`
	OutputDir    string             `json:"outputDir"`
	ActiveRuns   int                `json:"activeRuns"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HistoryRun summarizes a persisted run.
type HistoryRun struct {
	RunID        string            `json:"runId"`
	Topic        string            `json:"topic"`
	Slug         string            `json:"slug,omitempty"`
	Mode         string            `json:"mode"`
	Status       string            `json:"status"`
	FailureKind  string            `json:"failureKind,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Files        map[string]string `json:"files,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	StartedAt    string            `json:"startedAt,omitempty"`
	FinishedAt   string            `json:"finishedAt,omitempty"`
	Duration     string            `json:"duration,omitempty"`
}

// HistoryResponse wraps persisted runs for API responses.
type HistoryResponse struct {
	Runs []HistoryRun `json:"runs"`
}

// ImportResponse reports the extraction outcome for an uploaded file.
type ImportResponse struct {
	Text     string         `json:"text"`
	JSONLike bool           `json:"jsonLike"`
	Document map[string]any `json:"document,omitempty"`
}

// LogEvent is a structured log record for live tailing.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	RunID     string            `json:"runId,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	StepKind  string            `json:"stepKind,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// DetailField carries one label/value detail attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse wraps a page of log events plus the next cursor.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
