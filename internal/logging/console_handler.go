package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// kv is a flattened attribute: group nesting folded into a dotted key.
type kv struct {
	key   string
	value slog.Value
}

// header holds the fields promoted out of the attribute list into the
// line prefix.
type header struct {
	component string
	runID     string
	stage     string
}

// consoleHandler renders records as human-readable lines. Info records
// show a curated bullet list of fields; debug records dump every
// attribute verbatim.
type consoleHandler struct {
	mu        sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	infoCache map[string]map[string]string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		writer:    w,
		level:     lvl,
		addSource: addSource,
		infoCache: make(map[string]map[string]string),
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	hdr, body := splitHeader(kvs)

	var buf bytes.Buffer
	buf.Grow(256 + len(body)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Level < slog.LevelInfo {
		h.writeDebug(&buf, ts, record.Level, hdr, message, recordSource(record), dedupeKVsByKey(kvs))
	} else {
		h.writeInfo(&buf, ts, record.Level, hdr, message, recordSource(record), dedupeKVsByKey(body))
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// recordSource resolves the record's PC into a source location, returning
// nil when the record carries no caller information. It mirrors
// slog.Record.Source, which this module's minimum toolchain predates.
func recordSource(record slog.Record) *slog.Source {
	fs := runtime.CallersFrames([]uintptr{record.PC})
	f, _ := fs.Next()
	if f.Function == "" && f.File == "" && f.Line == 0 {
		return nil
	}
	return &slog.Source{
		Function: f.Function,
		File:     f.File,
		Line:     f.Line,
	}
}

// splitHeader pulls the component, run and stage identifiers out of the
// flattened attributes. Component entries leave the body entirely; run
// and stage stay so field selection can still see them.
func splitHeader(kvs []kv) (header, []kv) {
	var hdr header
	body := make([]kv, 0, len(kvs))
	for _, attr := range kvs {
		switch {
		case attr.key == FieldComponent:
			if hdr.component == "" {
				hdr.component = attrString(attr.value)
			}
			continue
		case attr.key == FieldRunID && hdr.runID == "":
			hdr.runID = attrString(attr.value)
		case attr.key == FieldStage && hdr.stage == "":
			hdr.stage = attrString(attr.value)
		}
		body = append(body, attr)
	}
	return hdr, body
}

func (h *consoleHandler) writeInfo(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source, attrs []kv) {
	h.writeHeader(buf, ts, level, hdr, message, src)
	buf.WriteByte('\n')
	fields, hidden := selectInfoFields(attrs, 0, true)
	fields, hidden = h.filterRepeatedInfo(infoSummaryKey(hdr.component, hdr.runID, attrs), fields, hidden, level)
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
}

func (h *consoleHandler) writeDebug(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source, attrs []kv) {
	h.writeHeader(buf, ts, level, hdr, message, src)
	buf.WriteByte('\n')
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(attr.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(attr.value))
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if hdr.component != "" {
		buf.WriteString(" [")
		buf.WriteString(hdr.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(hdr.runID, hdr.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
}

// filterRepeatedInfo drops fields whose value matches what was last shown
// under the same summary key, keeping repeated progress lines short. Warn
// and error records always print their fields but still refresh the cache.
func (h *consoleHandler) filterRepeatedInfo(key string, fields []infoField, hidden int, level slog.Level) ([]infoField, int) {
	if key == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache := h.infoCache[key]
	if cache == nil {
		cache = make(map[string]string)
		h.infoCache[key] = cache
	}
	if level > slog.LevelInfo {
		for _, field := range fields {
			cache[field.label] = field.value
		}
		return fields, hidden
	}
	kept := fields[:0]
	for _, field := range fields {
		if prev, ok := cache[field.label]; ok && prev == field.value {
			continue
		}
		cache[field.label] = field.value
		kept = append(kept, field)
	}
	return kept, hidden
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

// clone shares the writer, level and info cache; attrs and groups are
// copied so derived handlers extend them independently.
func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		infoCache: h.infoCache,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

// dedupeKVsByKey keeps the first position of each key and the last value
// written to it, so overrides replace without reordering.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	index := make(map[string]int, len(attrs))
	out := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if at, ok := index[attr.key]; ok {
			out[at].value = attr.value
			continue
		}
		index[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

// flattenAttr resolves LogValuers and folds group members into dotted keys.
func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindGroup {
		*dst = append(*dst, kv{key: dottedKey(prefix, attr.Key), value: attr.Value})
		return
	}
	next := prefix
	if attr.Key != "" {
		next = make([]string, 0, len(prefix)+1)
		next = append(next, prefix...)
		next = append(next, attr.Key)
	}
	flattenAttrs(dst, next, attr.Value.Group())
}

func dottedKey(prefix []string, key string) string {
	if len(prefix) == 0 {
		return key
	}
	if key == "" {
		return strings.Join(prefix, ".")
	}
	return strings.Join(prefix, ".") + "." + key
}

func levelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}
