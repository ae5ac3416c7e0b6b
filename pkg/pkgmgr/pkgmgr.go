// Package pkgmgr wraps the host's OS package manager. The orchestrator only
// consumes two operations, both safely retryable: refreshing the package
// index and installing a package list. LockPaths exposes the manager's
// internal lock files so callers can wait out contention before each call.
package pkgmgr

import "context"

// Manager is the package-manager collaborator.
type Manager interface {
	// UpdateIndex refreshes the package index.
	UpdateIndex(ctx context.Context) error

	// Install installs the given packages non-interactively.
	Install(ctx context.Context, packages []string) error

	// LockPaths returns the manager's internal lock files. Concurrent
	// unrelated processes (unattended upgrades, other installs) hold
	// exclusive locks on these while working.
	LockPaths() []string
}
