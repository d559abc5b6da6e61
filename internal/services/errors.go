package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingPrerequisite = errors.New("missing prerequisite document")
	ErrNoJSONFound         = errors.New("no json found")
	ErrUnparsableJSON      = errors.New("unparsable json")
	ErrRender              = errors.New("render error")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("timeout")
	ErrTransient           = errors.New("transient failure")
)

// Wrap tags an error with one of the sentinel markers above plus a
// stage/operation prefix, so callers classify the failure with errors.Is
// while the message stays readable. A nil marker falls back to ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := buildDetail(stage, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// FailureKind maps a pipeline error to the category persisted in run history
// and reported by the API when a run fails.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingPrerequisite):
		return "missing_prerequisite"
	case errors.Is(err, ErrNoJSONFound), errors.Is(err, ErrUnparsableJSON):
		return "llm_output"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return "canceled"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
