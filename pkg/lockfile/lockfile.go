// Package lockfile provides process-scoped mutual exclusion for named
// resources. The production implementation takes a non-blocking advisory
// flock on a per-resource file; the kernel drops the lock when the holding
// process exits, so a crashed run can never wedge future runs.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyHeld is returned by TryAcquire when another process holds the
// lock. Callers treat this as "someone else is already doing this", not as
// a failure.
var ErrAlreadyHeld = errors.New("lock already held by another process")

// Handle is a held lock. Release is idempotent.
type Handle interface {
	Release() error
}

// Locker acquires exclusive locks on named resources. Acquisition is
// non-blocking: a held lock fails immediately with ErrAlreadyHeld.
type Locker interface {
	TryAcquire(resource string) (Handle, error)
}

// FlockLocker implements Locker with advisory file locks under a directory.
type FlockLocker struct {
	dir string
}

// NewFlockLocker creates a locker storing lock files under dir.
func NewFlockLocker(dir string) *FlockLocker {
	return &FlockLocker{dir: dir}
}

// TryAcquire takes the lock file for resource. The file's content is
// irrelevant; the advisory lock is the signal.
func (l *FlockLocker) TryAcquire(resource string) (Handle, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(l.dir, resource+".lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyHeld
	}

	return &flockHandle{fl: fl}, nil
}

type flockHandle struct {
	fl *flock.Flock
}

func (h *flockHandle) Release() error {
	return h.fl.Unlock()
}
