package pipeline

import (
	"strings"
	"time"

	"prositor/internal/document"
	"prositor/internal/textutil"
)

// Kind classifies a trace entry in the run's audit log.
type Kind string

const (
	KindThought     Kind = "thought"
	KindAction      Kind = "action"
	KindObservation Kind = "observation"
	KindResult      Kind = "result"
)

// Entry is one append-only record in the run trace.
type Entry struct {
	Stage     string    `json:"stage"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity carries the run's presentation fields. Callers fill omitted
// values from configuration defaults before constructing the Memory.
type Identity struct {
	Topic        string
	Student      string
	Program      string
	AcademicYear string
	Slug         string
}

// Memory is the single mutable state object threaded through one run.
// Slots are populated at most once, in stage order; the trace and warning
// lists only ever grow.
type Memory struct {
	identity  Identity
	outputDir string
	documents map[document.Type]map[string]any
	files     map[document.Type]string
	trace     []Entry
	warnings  []string
	observer  func(Entry)
}

// NewMemory constructs the per-run state. A blank slug is derived from the
// topic.
func NewMemory(identity Identity, outputDir string) *Memory {
	identity.Topic = strings.TrimSpace(identity.Topic)
	identity.Student = strings.TrimSpace(identity.Student)
	identity.Program = strings.TrimSpace(identity.Program)
	identity.AcademicYear = strings.TrimSpace(identity.AcademicYear)
	identity.Slug = strings.TrimSpace(identity.Slug)
	if identity.Slug == "" {
		identity.Slug = textutil.Slug(identity.Topic)
	}
	return &Memory{
		identity:  identity,
		outputDir: outputDir,
		documents: make(map[document.Type]map[string]any, 3),
		files:     make(map[document.Type]string, 3),
	}
}

// Identity returns the run's presentation fields.
func (m *Memory) Identity() Identity {
	return m.identity
}

// OutputDir returns the directory rendered files are written under.
func (m *Memory) OutputDir() string {
	return m.outputDir
}

// SetObserver registers a callback invoked for every appended trace entry.
func (m *Memory) SetObserver(fn func(Entry)) {
	m.observer = fn
}

// Append records a trace entry, stamping it at append time.
func (m *Memory) Append(stage string, kind Kind, message string) Entry {
	entry := Entry{
		Stage:     stage,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	m.trace = append(m.trace, entry)
	if m.observer != nil {
		m.observer(entry)
	}
	return entry
}

// Document returns a copy of the slot's document, if populated.
func (m *Memory) Document(t document.Type) (map[string]any, bool) {
	doc, ok := m.documents[t]
	if !ok {
		return nil, false
	}
	return document.Clone(doc), true
}

// SetDocument fills a document slot. The stored value is a copy, so later
// caller mutations cannot reach the run state.
func (m *Memory) SetDocument(t document.Type, doc map[string]any) {
	m.documents[t] = document.Clone(doc)
}

// SetFile records the rendered output path for a document slot.
func (m *Memory) SetFile(t document.Type, path string) {
	m.files[t] = path
}

// File returns the rendered output path for a slot, if any.
func (m *Memory) File(t document.Type) (string, bool) {
	path, ok := m.files[t]
	return path, ok
}

// Files returns the slot-to-path map for all rendered documents.
func (m *Memory) Files() map[string]string {
	out := make(map[string]string, len(m.files))
	for t, path := range m.files {
		out[string(t)] = path
	}
	return out
}

// Warn appends a non-fatal coherence warning.
func (m *Memory) Warn(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.warnings = append(m.warnings, message)
}

// Warnings returns the accumulated warnings.
func (m *Memory) Warnings() []string {
	return append([]string(nil), m.warnings...)
}

// Trace returns the accumulated trace entries.
func (m *Memory) Trace() []Entry {
	return append([]Entry(nil), m.trace...)
}
