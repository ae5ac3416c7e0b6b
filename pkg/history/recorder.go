package history

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder adapts a SQLiteStore to the orchestrator's lifecycle
// notifications. History is diagnostic data, so every write is
// best-effort: failures are logged and swallowed.
type Recorder struct {
	store  *SQLiteStore
	logger zerolog.Logger
}

// NewRecorder wraps store for use as a run recorder.
func NewRecorder(store *SQLiteStore, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

func (r *Recorder) RunStarted(ctx context.Context, runID, entrypoint string) {
	if err := r.store.CreateRun(ctx, runID, entrypoint); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Could not record run start")
	}
}

func (r *Recorder) PhaseReached(ctx context.Context, runID, phase string) {
	if err := r.store.RecordPhase(ctx, runID, phase, "reached", nil); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Could not record phase")
	}
}

func (r *Recorder) PhaseFailed(ctx context.Context, runID, phase, reason string) {
	if err := r.store.RecordPhase(ctx, runID, phase, "failed", &reason); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Could not record phase failure")
	}
}

func (r *Recorder) RunFinished(ctx context.Context, runID, status string, reason *string) {
	if err := r.store.FinishRun(ctx, runID, RunStatus(status), reason); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Could not record run completion")
	}
}
