package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// EventArchive journals stream events to disk as JSON lines so API clients
// can replay lines that have already rotated out of the in-memory hub.
type EventArchive struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventArchive starts a fresh journal at path, truncating any previous
// one. An empty path disables archiving and returns a nil archive; every
// method is nil-safe.
func NewEventArchive(path string) (*EventArchive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	file, err := createJournal(path)
	if err != nil {
		return nil, err
	}
	return &EventArchive{path: path, file: file, enc: json.NewEncoder(file)}, nil
}

func createJournal(path string) (*os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("initialize archive %s: %w", path, err)
	}
	return file, nil
}

// Append journals one event. Archive failures never interrupt logging; the
// next Append retries the file handle.
func (a *EventArchive) Append(evt LogEvent) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enc == nil && a.reopen() != nil {
		return
	}
	_ = a.enc.Encode(evt)
}

func (a *EventArchive) reopen() error {
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	a.file = file
	a.enc = json.NewEncoder(file)
	return nil
}

// ReadSince returns journaled events with sequence greater than since, plus
// the highest sequence observed while scanning. A limit of 0 returns every
// event after since.
func (a *EventArchive) ReadSince(since uint64, limit int) ([]LogEvent, uint64, error) {
	if a == nil || a.path == "" {
		return nil, since, nil
	}
	file, err := os.Open(a.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, since, nil
	case err != nil:
		return nil, since, fmt.Errorf("open archive %s: %w", a.path, err)
	}
	defer file.Close()

	events := make([]LogEvent, 0, readCapHint(limit))
	highest := since
	reader := bufio.NewReader(file)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var evt LogEvent
			if err := json.Unmarshal(trimmed, &evt); err != nil {
				return events, highest, fmt.Errorf("decode archive %s: %w", a.path, err)
			}
			if evt.Sequence > highest {
				highest = evt.Sequence
			}
			if evt.Sequence > since {
				events = append(events, evt)
				if limit > 0 && len(events) >= limit {
					return events, highest, nil
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return events, highest, nil
			}
			return events, highest, fmt.Errorf("read archive %s: %w", a.path, readErr)
		}
	}
}

// readCapHint sizes the result slice; journals can be long but reads rarely
// want more than the hub holds.
func readCapHint(limit int) int {
	if limit > 0 && limit <= 512 {
		return limit
	}
	return 512
}

// Close releases the journal file handle.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	file := a.file
	a.file = nil
	a.enc = nil
	if file == nil {
		return nil
	}
	return file.Close()
}

// Path returns the on-disk location backing the archive.
func (a *EventArchive) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}
