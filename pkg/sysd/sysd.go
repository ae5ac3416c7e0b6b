// Package sysd wraps the host's service supervisor (systemd). The
// orchestrator treats units as opaque: it installs definitions, flips them
// on, and observes coarse state. Nothing here interprets what the managed
// service actually does.
package sysd

import "context"

// State is the coarse unit state the orchestrator acts on.
type State string

const (
	StateActive     State = "active"
	StateFailed     State = "failed"
	StateActivating State = "activating"
	StateInactive   State = "inactive"
)

// Supervisor is the service-lifecycle collaborator.
type Supervisor interface {
	// InstallUnit writes the unit definition into the supervisor's
	// configuration location and reloads it. Overwrites any previous
	// definition, so it is idempotent by nature.
	InstallUnit(ctx context.Context, name string, definition []byte) error

	// Enable marks the unit for automatic start on boot.
	Enable(ctx context.Context, name string) error

	// Start starts the unit.
	Start(ctx context.Context, name string) error

	// Restart restarts the unit, starting it if not running.
	Restart(ctx context.Context, name string) error

	// QueryState returns the unit's current coarse state.
	QueryState(ctx context.Context, name string) (State, error)

	// FetchLogs returns the unit's captured log output for diagnostics.
	FetchLogs(ctx context.Context, name string, sinceBoot bool) (string, error)
}
