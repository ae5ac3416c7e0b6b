// Package markers persists "phase complete" facts so idempotent provisioning
// phases become no-ops on re-runs. A marker is one file per phase whose
// content is the completion timestamp; only its existence is load-bearing.
package markers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store records and checks durable phase-completion markers.
type Store interface {
	// Has reports whether phase has a completion marker.
	Has(phase string) (bool, error)

	// Record writes the completion marker for phase. It must only be
	// called after every side effect of the phase has succeeded.
	Record(phase string) error
}

// FSStore keeps one marker file per phase under a directory.
type FSStore struct {
	dir string
	now func() time.Time
}

// NewFSStore creates a filesystem-backed store rooted at dir. The directory
// is created lazily on the first Record.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir, now: time.Now}
}

func (s *FSStore) path(phase string) string {
	return filepath.Join(s.dir, phase)
}

// Has checks for the marker file's existence.
func (s *FSStore) Has(phase string) (bool, error) {
	_, err := os.Stat(s.path(phase))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat marker for %s: %w", phase, err)
}

// Record creates the marker containing the completion timestamp. Markers
// never expire; removal is a manual operation.
func (s *FSStore) Record(phase string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	content := s.now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.path(phase), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write marker for %s: %w", phase, err)
	}
	return nil
}

// CompletedAt returns the recorded completion time for phase, for operator
// status output. Returns the zero time if the marker is absent.
func (s *FSStore) CompletedAt(phase string) (time.Time, error) {
	data, err := os.ReadFile(s.path(phase))
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read marker for %s: %w", phase, err)
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed marker for %s: %w", phase, err)
	}
	return ts, nil
}

// Dir returns the marker directory.
func (s *FSStore) Dir() string {
	return s.dir
}
