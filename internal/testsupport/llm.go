package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ScriptedCompletions starts an HTTP server that plays chat completion
// contents back in request order. Requests beyond the script fail the test
// and answer 400, which the completion client does not retry.
func ScriptedCompletions(t testing.TB, contents ...string) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	next := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		index := next
		next++
		mu.Unlock()
		if index >= len(contents) {
			t.Errorf("llm request %d exceeds scripted %d completions", index+1, len(contents))
			http.Error(w, "completion script exhausted", http.StatusBadRequest)
			return
		}
		payload := map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"content": contents[index]},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 240, "total_tokens": 360},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode scripted completion: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}
