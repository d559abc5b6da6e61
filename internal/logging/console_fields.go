package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys is the curated front-of-line order for info fields.
// Keys absent from this list render afterwards in record order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"topic",
	FieldDocument,
	"mode",
	FieldStep,
	FieldStepKind,
	"score",
	"valid",
	"rules_failed",
	"validation_errors",
	"warnings",
	"coherence_issues",
	"attempt",
	"model",
	"prompt_tokens",
	"completion_tokens",
	"command",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	"status",
	"reason",
	// run summary
	"stage_duration",
	"llm_duration",
	"render_duration",
	"run_duration",
	"documents_generated",
	"document_bytes",
	"output_file",
	"entries",
}

// selectInfoFields picks and formats the fields an info line shows.
// Highlighted keys come first, everything else follows in record order.
// limit 0 means unlimited; includeDebug admits keys that normally stay
// in the debug file.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}

	picker := fieldPicker{
		attrs:        attrs,
		limit:        limit,
		includeDebug: includeDebug,
		used:         make([]bool, len(attrs)),
	}
	for _, key := range infoHighlightKeys {
		if picker.full() {
			break
		}
		picker.takeKey(key)
	}
	for idx := range attrs {
		picker.take(idx)
	}
	return picker.fields, picker.hidden
}

type fieldPicker struct {
	attrs        []kv
	limit        int
	includeDebug bool
	used         []bool
	fields       []infoField
	hidden       int
}

func (p *fieldPicker) full() bool {
	return p.limit > 0 && len(p.fields) >= p.limit
}

func (p *fieldPicker) takeKey(key string) {
	for idx, attr := range p.attrs {
		if !p.used[idx] && attr.key == key {
			p.take(idx)
			return
		}
	}
}

func (p *fieldPicker) take(idx int) {
	if p.used[idx] {
		return
	}
	p.used[idx] = true
	attr := p.attrs[idx]
	if skipInfoKey(attr.key) {
		return
	}
	if !p.includeDebug && isDebugOnlyKey(attr.key) {
		p.hidden++
		return
	}
	val := formatValueForKey(attr.key, attr.value)
	if !p.includeDebug && shouldHideInfoValue(attr.key, val) {
		p.hidden++
		return
	}
	if p.full() {
		p.hidden++
		return
	}
	p.fields = append(p.fields, infoField{label: displayLabel(attr.key), value: val})
}

// formatValueForKey renders v with key-aware units: byte counts,
// durations and percentages become human-readable, booleans become
// yes/no, error values are truncated to one screen line.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case isByteSizeKey(key) && v.Kind() == slog.KindInt64:
		return formatBytes(v.Int64())
	case isByteSizeKey(key) && v.Kind() == slog.KindUint64:
		return formatBytes(int64(v.Uint64()))
	case isDurationKey(key) && v.Kind() == slog.KindDuration:
		return formatDurationHuman(v.Duration())
	case isPercentKey(key) && v.Kind() == slog.KindFloat64:
		return formatPercent(v.Float64())
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return key == "size" || strings.HasSuffix(key, "_bytes") || strings.HasSuffix(key, "_size")
}

func isDurationKey(key string) bool {
	switch key {
	case "elapsed", "duration", "backoff":
		return true
	}
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency")
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") || strings.HasSuffix(key, "_ratio")
}

func formatBytes(value int64) string {
	units := []struct {
		limit int64
		name  string
	}{
		{1 << 30, "GiB"},
		{1 << 20, "MiB"},
		{1 << 10, "KiB"},
	}
	for _, u := range units {
		if value >= u.limit {
			return fmt.Sprintf("%.2f %s", float64(value)/float64(u.limit), u.name)
		}
	}
	return fmt.Sprintf("%d B", value)
}

func formatDurationHuman(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// truncateErrorValue keeps error lines readable on one screen. The run
// log carries the full text.
func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		return value[:maxLen] + "…"
	}
	return value
}

// skipInfoKey filters keys already rendered in the line header.
func skipInfoKey(key string) bool {
	return key == "" || key == FieldRunID || key == FieldStage || key == FieldComponent
}

// isDebugOnlyKey marks fields too noisy for the console at info level;
// the per-run debug file still carries them.
func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldCorrelationID, "base_url", "request_bytes", "response_bytes",
		"prompt_chars", "response_chars", "payload_snippet", "retry_after",
		"backoff", "memory_keys", "markdown_bytes", "fence_stripped", "repaired":
		return true
	}
	switch {
	case strings.Contains(key, "correlation"):
		return true
	case strings.HasSuffix(key, "_id") && key != FieldRunID:
		return true
	case strings.Contains(key, "_path"), strings.Contains(key, "_dir"):
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error", "error_message", "command", "reason", "topic":
		return false
	}
	return len(value) > 120
}

var fieldLabels = map[string]string{
	FieldAlert:            "Alert",
	FieldEventType:        "Event",
	FieldErrorCode:        "Error Code",
	FieldErrorHint:        "Hint",
	FieldRunID:            "Run",
	FieldStage:            "Stage",
	FieldStep:             "Step",
	FieldStepKind:         "Kind",
	FieldDocument:         "Document",
	"output_file":         "Output",
	"validation_errors":   "Failed Rules",
	"rules_failed":        "Failed Rules",
	"coherence_issues":    "Coherence",
	"stage_duration":      "Duration",
	"run_duration":        "Total Time",
	"llm_duration":        "LLM Time",
	"render_duration":     "Render Time",
	"documents_generated": "Documents",
	"document_bytes":      "Size",
	"prompt_tokens":       "Prompt Tokens",
	"completion_tokens":   "Completion Tokens",
	"entries":             "Trace Entries",
	"reason":              "Reason",
}

func displayLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		parts = []string{key}
	}
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

// infoSummaryKey scopes the repeated-field cache: by run when known,
// otherwise by topic or component so unrelated lines never suppress each
// other.
func infoSummaryKey(component, runID string, attrs []kv) string {
	if id := strings.TrimSpace(runID); id != "" {
		return id
	}
	if topic := attrValue(attrs, "topic"); topic != "" {
		return "topic:" + topic
	}
	return component
}

func attrValue(attrs []kv, key string) string {
	for _, attr := range attrs {
		if attr.key == key {
			return attrString(attr.value)
		}
	}
	return ""
}
