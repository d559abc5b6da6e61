package logging

import (
	"context"
	"log/slog"

	"prositor/internal/services"
)

// Shared attribute keys. Handlers promote component, run and stage into
// the console header and the stream events; the rest render as ordinary
// fields.
const (
	FieldComponent     = "component"
	FieldRunID         = "run_id"
	FieldStage         = "stage"     // aller, retour or cer
	FieldStep          = "step"      // planning, drafting, repairing
	FieldStepKind      = "step_kind" // thought, action, observation, result
	FieldDocument      = "document"
	FieldCorrelationID = "correlation_id" // request id echoed in X-Request-ID
	FieldAlert         = "alert"
	FieldEventType     = "event_type"
	FieldErrorCode     = "error_code"
	FieldErrorHint     = "error_hint"
)

// ContextFields returns the slog attributes carried by ctx: run id,
// stage and request correlation id when present.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext augments logger with the fields ContextFields finds in ctx.
// A nil logger degrades to the no-op logger rather than panicking.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(attrsToArgs(fields)...)
	}
	return logger
}
