package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHandler_WithAttrs(t *testing.T) {
	hub := NewStreamHub(100)

	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	// Run loggers carry run_id via With, not at the call site.
	logger := slog.New(handler).With(slog.String(FieldRunID, "4fa2c6d1"))

	logger.Info("test message", slog.String("extra", "value"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].RunID != "4fa2c6d1" {
		t.Errorf("expected run_id=4fa2c6d1, got %q", events[0].RunID)
	}
	if events[0].Message != "test message" {
		t.Errorf("expected message='test message', got %q", events[0].Message)
	}
}

func TestStreamHandler_NestedWithAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	logger := slog.New(handler).
		With(slog.String(FieldRunID, "run-99")).
		With(slog.String(FieldStage, "retour")).
		With(slog.String(FieldStep, "drafting"))

	logger.Info("drafting progress", slog.String(FieldStepKind, "action"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	evt := events[0]
	if evt.RunID != "run-99" {
		t.Errorf("expected run_id='run-99', got %q", evt.RunID)
	}
	if evt.Stage != "retour" {
		t.Errorf("expected stage='retour', got %q", evt.Stage)
	}
	if evt.Step != "drafting" {
		t.Errorf("expected step='drafting', got %q", evt.Step)
	}
	if evt.StepKind != "action" {
		t.Errorf("expected step_kind='action', got %q", evt.StepKind)
	}
}

func TestStreamHandler_CallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	logger := slog.New(handler).With(slog.String(FieldStage, "aller"))

	// Call-site stage wins over the bound one.
	logger.Info("message", slog.String(FieldStage, "cer"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Stage != "cer" {
		t.Errorf("expected stage='cer', got %q", events[0].Stage)
	}
}

func TestStreamHandler_NilHub(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, nil)

	if handler != base {
		t.Errorf("expected base handler when hub is nil")
	}
}

func TestStreamHandler_Enabled(t *testing.T) {
	hub := NewStreamHub(100)
	base := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := newStreamHandler(base, hub)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected INFO to be disabled when base level is WARN")
	}
	if !handler.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected WARN to be enabled when base level is WARN")
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(8)
	for i := 0; i < 3; i++ {
		hub.Publish(LogEvent{Message: "m", Timestamp: time.Now()})
	}

	events, next, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if next != events[len(events)-1].Sequence {
		t.Fatalf("expected next cursor %d, got %d", events[len(events)-1].Sequence, next)
	}

	events, _, err = hub.Fetch(context.Background(), next, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events past cursor, got %d", len(events))
	}
}

func TestStreamHubCapacityEvictsOldest(t *testing.T) {
	hub := NewStreamHub(2)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}

	events, _ := hub.Tail(10)
	if len(events) != 2 {
		t.Fatalf("expected ring to keep 2 events, got %d", len(events))
	}
	if events[0].Sequence != 4 || events[1].Sequence != 5 {
		t.Fatalf("expected sequences 4 and 5, got %d and %d", events[0].Sequence, events[1].Sequence)
	}
	if first := hub.FirstSequence(); first != 4 {
		t.Fatalf("expected first sequence 4, got %d", first)
	}
}

func TestStreamHubFetchWaits(t *testing.T) {
	hub := NewStreamHub(8)

	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "late"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, _, err := hub.Fetch(ctx, 0, 10, true)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the waited-for event, got %d", len(events))
	}
	if events[0].Message != "late" {
		t.Fatalf("unexpected message %q", events[0].Message)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
