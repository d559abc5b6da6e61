package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log line in the form the streaming API serves it: the
// well-known pipeline fields are promoted to typed columns, everything else
// lands in Fields.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	RunID         string            `json:"run_id,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	Step          string            `json:"step,omitempty"`
	StepKind      string            `json:"step_kind,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField carries the same label/value pairs the console renders as
// bullet lines, so web clients can mirror that presentation.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogEventSink receives every event published to a hub. The event archive
// implements it to journal events to disk.
type LogEventSink interface {
	Append(LogEvent)
}

// StreamHub keeps a bounded ring of recent log events, assigns sequence
// numbers, and wakes blocked Fetch calls when new events land.
//
// Sequence numbers are dense: the ring always holds the count most recent
// ones, which lets lookups run on arithmetic instead of scans.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	head    int // index of the oldest buffered event
	count   int
	nextSeq uint64
	wakeup  chan struct{} // closed and remade on every Publish
	sinks   []LogEventSink
}

// NewStreamHub builds a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{
		ring:   make([]LogEvent, capacity),
		wakeup: make(chan struct{}),
	}
}

// AddSink registers a sink that sees every event published afterwards.
func (h *StreamHub) AddSink(sink LogEventSink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish stamps the event with the next sequence number, stores it, and
// wakes waiters. Sinks run outside the lock so a slow sink cannot stall
// logging.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.count == len(h.ring) {
		h.ring[h.head] = evt
		h.head = (h.head + 1) % len(h.ring)
	} else {
		h.ring[(h.head+h.count)%len(h.ring)] = evt
		h.count++
	}
	sinks := slices.Clone(h.sinks)
	close(h.wakeup)
	h.wakeup = make(chan struct{})
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
}

// Fetch returns buffered events with sequence greater than since. With wait
// set, Fetch blocks until an event arrives or the context ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		h.mu.Lock()
		events, next := h.eventsAfter(since, h.clampLimit(limit))
		wakeup := h.wakeup
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, next, ctx.Err()
		}
		select {
		case <-wakeup:
		case <-ctx.Done():
			return nil, next, ctx.Err()
		}
	}
}

// Tail returns up to limit of the most recent events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.clampLimit(limit)
	if n > h.count {
		n = h.count
	}
	return h.copyRange(h.count-n, n), h.nextSeq
}

// FirstSequence reports the oldest sequence number still buffered; clients
// past that point must fall back to the on-disk archive.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return h.nextSeq
	}
	return h.nextSeq - uint64(h.count) + 1
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > len(h.ring) {
		return len(h.ring)
	}
	return limit
}

// eventsAfter is the locked core of Fetch: everything newer than since,
// capped at limit, plus the cursor for the next call.
func (h *StreamHub) eventsAfter(since uint64, limit int) ([]LogEvent, uint64) {
	if h.count == 0 || since >= h.nextSeq {
		return nil, h.nextSeq
	}
	oldest := h.nextSeq - uint64(h.count) + 1
	skip := 0
	if since >= oldest {
		skip = int(since - oldest + 1)
	}
	n := h.count - skip
	if n > limit {
		n = limit
	}
	return h.copyRange(skip, n), h.nextSeq
}

// copyRange copies n events starting at logical offset off, oldest first.
func (h *StreamHub) copyRange(off, n int) []LogEvent {
	if n <= 0 {
		return nil
	}
	out := make([]LogEvent, n)
	for i := range out {
		out[i] = h.ring[(h.head+off+i)%len(h.ring)]
	}
	return out
}

// streamHandler publishes every record to the hub before passing it on.
// WithAttrs state is tracked locally because the published event must carry
// logger-level fields like run_id, not just call-site attrs.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.hub != nil {
		h.hub.Publish(eventFromRecordWithAttrs(record, h.attrs))
	}
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub}
}

// absorb routes one attribute into the event, promoting the well-known
// pipeline fields and collecting the rest under Fields.
func (e *LogEvent) absorb(attr slog.Attr) {
	key := strings.TrimSpace(attr.Key)
	if key == "" {
		return
	}
	switch key {
	case FieldComponent:
		e.Component = attrString(attr.Value)
	case FieldRunID:
		e.RunID = attrString(attr.Value)
	case FieldStage:
		e.Stage = attrString(attr.Value)
	case FieldStep:
		e.Step = attrString(attr.Value)
	case FieldStepKind:
		e.StepKind = attrString(attr.Value)
	case FieldCorrelationID:
		e.CorrelationID = attrString(attr.Value)
	default:
		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		e.Fields[key] = attrString(attr.Value)
	}
}

// eventFromRecordWithAttrs flattens a record plus its logger-level attrs
// into a LogEvent. Call-site attrs come last so they win over logger-level
// ones, matching slog resolution order.
func eventFromRecordWithAttrs(record slog.Record, preAttrs []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	for _, attr := range preAttrs {
		event.absorb(attr)
	}

	recorded := make([]kv, 0, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		event.absorb(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			recorded = append(recorded, kv{key: key, value: attr.Value})
		}
		return true
	})
	event.Details = eventDetails(recorded)
	return event
}

// eventDetails reuses the console's field selection so the stream shows the
// same bullet lines a terminal user sees.
func eventDetails(attrs []kv) []DetailField {
	info, _ := selectInfoFields(attrs, infoAttrLimit, false)
	if len(info) == 0 {
		return nil
	}
	details := make([]DetailField, len(info))
	for i, field := range info {
		details[i] = DetailField{Label: field.label, Value: field.value}
	}
	return details
}
