package orchestrator

// State identifies where a provisioning run is in its sequence. Phases
// execute strictly in order; a later phase never begins before the earlier
// one's side effects are durable.
type State string

const (
	StateStart                   State = "start"
	StateLockAcquired            State = "lock_acquired"
	StateOSDepsInstalled         State = "os_deps_installed"
	StatePreconditionsVerified   State = "preconditions_verified"
	StateUnitsInstalled          State = "units_installed"
	StateDependencyPhaseRunning  State = "dependency_phase_running"
	StateDependencyPhaseComplete State = "dependency_phase_complete"
	StateServiceStarted          State = "service_started"
	StateDone                    State = "done"
	StateFailed                  State = "failed"
)
