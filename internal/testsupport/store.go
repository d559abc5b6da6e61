package testsupport

import (
	"context"
	"testing"

	"prositor/internal/config"
	"prositor/internal/history"
)

// MustOpenStore opens the run history store for tests and closes it when the
// test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// BeginRun records a running history entry for tests.
func BeginRun(t testing.TB, store *history.Store, id, topic, mode string) *history.Run {
	t.Helper()

	run, err := store.Begin(context.Background(), id, topic, "", mode)
	if err != nil {
		t.Fatalf("begin run %s: %v", id, err)
	}
	return run
}
