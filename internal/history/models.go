package history

import "time"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           string
	Topic        string
	Slug         string
	Mode         string
	Status       Status
	FailureKind  string
	ErrorMessage string
	Files        map[string]string
	Warnings     []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the elapsed run time, zero while the run is still open.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
