package server

import (
	"sync"
	"time"

	"prositor/internal/api"
	"prositor/internal/services"
)

// runRegistry tracks runs started by this server instance. Finished runs
// stay visible until the process exits; older runs are served from the
// history store instead.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*api.RunState
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*api.RunState)}
}

func (r *runRegistry) begin(id, topic, mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = &api.RunState{
		RunID:     id,
		Topic:     topic,
		Mode:      mode,
		Status:    "running",
		StartedAt: api.FormatTime(time.Now()),
	}
}

func (r *runRegistry) complete(id string, res api.RunPipelineResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.runs[id]
	if !ok {
		return
	}
	state.Status = "completed"
	state.FinishedAt = api.FormatTime(time.Now())
	r.applyResult(state, res)
}

func (r *runRegistry) fail(id string, res api.RunPipelineResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.runs[id]
	if !ok {
		return
	}
	state.Status = "failed"
	state.FinishedAt = api.FormatTime(time.Now())
	if err != nil {
		state.FailureKind = services.FailureKind(err)
		state.Error = err.Error()
	}
	r.applyResult(state, res)
}

// applyResult backfills fields the pipeline normalized or derived after the
// run was registered.
func (r *runRegistry) applyResult(state *api.RunState, res api.RunPipelineResult) {
	if res.Topic != "" {
		state.Topic = res.Topic
	}
	if res.Slug != "" {
		state.Slug = res.Slug
	}
	if res.Mode != "" {
		state.Mode = string(res.Mode)
	}
	state.Result = api.FromResult(res.Result)
}

func (r *runRegistry) get(id string) (api.RunState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[id]
	if !ok {
		return api.RunState{}, false
	}
	out := *state
	return out, true
}

func (r *runRegistry) active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, state := range r.runs {
		if state.Status == "running" {
			count++
		}
	}
	return count
}
