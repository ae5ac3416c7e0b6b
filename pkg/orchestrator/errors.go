package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrPreconditionMissing means a required external input (such as
	// the application source tree) is absent. Never retried: waiting
	// cannot make a missing precondition appear.
	ErrPreconditionMissing = errors.New("precondition missing")

	// ErrVerificationFailed means the post-install smoke check failed.
	// The completion marker must not be written when this occurs.
	ErrVerificationFailed = errors.New("entrypoint verification failed")

	// ErrSupervisorFailed means the supervisor reported the dependency
	// phase unit in a failed state.
	ErrSupervisorFailed = errors.New("supervisor reported unit failure")

	// ErrPollTimeout means the bounded wait for the dependency phase
	// elapsed without the unit reaching a terminal state.
	ErrPollTimeout = errors.New("timed out waiting for unit state")

	// ErrPolicyDenied means the policy gate rejected the run before any
	// side effects were performed.
	ErrPolicyDenied = errors.New("provisioning denied by policy")
)

// PhaseError wraps a failure with the phase it occurred in, so the origin
// of a failed run is structurally traceable.
type PhaseError struct {
	Phase State
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
