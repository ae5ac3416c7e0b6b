package orchestrator

import "context"

// Recorder receives run and phase lifecycle notifications. Implementations
// must be best-effort: the orchestrator ignores their failures, and they
// must never block a run.
type Recorder interface {
	RunStarted(ctx context.Context, runID, entrypoint string)
	PhaseReached(ctx context.Context, runID, phase string)
	PhaseFailed(ctx context.Context, runID, phase, reason string)
	RunFinished(ctx context.Context, runID, status string, reason *string)
}

// NopRecorder discards all notifications.
type NopRecorder struct{}

func (NopRecorder) RunStarted(context.Context, string, string)        {}
func (NopRecorder) PhaseReached(context.Context, string, string)      {}
func (NopRecorder) PhaseFailed(context.Context, string, string, string) {}
func (NopRecorder) RunFinished(context.Context, string, string, *string) {}
