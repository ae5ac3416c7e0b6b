package history

import "time"

// RunStatus represents the outcome of a provisioning run.
type RunStatus string

const (
	RunStatusRunning        RunStatus = "running"
	RunStatusDone           RunStatus = "done"
	RunStatusFailed         RunStatus = "failed"
	RunStatusAlreadyRunning RunStatus = "already_running"
)

// Run is one orchestrator invocation.
type Run struct {
	ID          string     `json:"id"`
	Entrypoint  string     `json:"entrypoint"` // provision or bootstrap
	Status      RunStatus  `json:"status"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PhaseRecord is one state transition within a run.
type PhaseRecord struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"`
	Status    string    `json:"status"` // reached or failed
	Error     *string   `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
