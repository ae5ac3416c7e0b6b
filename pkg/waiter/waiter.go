// Package waiter provides bounded and unbounded polling loops. It backs the
// two waits the orchestrator performs: waiting out contention on the package
// manager's internal lock files, and waiting for a supervisor-managed unit
// to reach a terminal state.
package waiter

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// ErrIterationsExhausted is returned by Poll when the iteration bound is
// reached without the condition becoming true.
var ErrIterationsExhausted = errors.New("poll iterations exhausted")

// Cond reports whether the awaited state has been reached. Returning an
// error aborts the poll immediately.
type Cond func(ctx context.Context) (bool, error)

// Poll re-checks cond every interval until it returns true. maxIterations
// bounds the number of checks; zero or negative means poll forever (the
// caller bounds exposure at a higher level). The context cancels the wait.
func Poll(ctx context.Context, interval time.Duration, maxIterations int, cond Cond) error {
	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ErrIterationsExhausted
}

// ContentionWaiter blocks until a set of externally owned lock files is
// free. It never times out on its own; each caller wraps it in a retried
// operation whose attempt budget bounds total exposure.
type ContentionWaiter struct {
	logger zerolog.Logger

	// probe reports whether the lock file at path currently has a holder.
	// Replaceable in tests.
	probe func(path string) bool
}

// NewContentionWaiter creates a waiter probing real flocks.
func NewContentionWaiter(logger zerolog.Logger) *ContentionWaiter {
	return &ContentionWaiter{
		logger: logger.With().Str("component", "contention-waiter").Logger(),
		probe:  flockHeld,
	}
}

// WaitUntilFree polls every path at interval and returns once none of them
// has an active holder.
func (w *ContentionWaiter) WaitUntilFree(ctx context.Context, paths []string, interval time.Duration) error {
	return Poll(ctx, interval, 0, func(ctx context.Context) (bool, error) {
		for _, path := range paths {
			if w.probe(path) {
				w.logger.Debug().
					Str("path", path).
					Dur("interval", interval).
					Msg("External lock held, waiting")
				return false, nil
			}
		}
		return true, nil
	})
}

// flockHeld probes path with a non-blocking shared-exclusion attempt. A
// missing file is free; an unprobeable file is treated as free so a
// permissions quirk cannot hang the wait forever.
func flockHeld(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return false
	}
	if locked {
		_ = fl.Unlock()
		return false
	}
	return true
}
