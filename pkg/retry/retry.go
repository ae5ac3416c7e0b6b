// Package retry provides a generic executor that runs fallible operations
// with bounded attempts and exponential backoff. It is the foundation the
// provisioning phases build on: anything that can fail transiently (package
// index updates, dependency downloads) goes through an Executor.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy governs a single Do invocation.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int

	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt. Must be >= 1.
	Multiplier float64

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// DefaultPolicy returns the policy used for package-manager operations.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

func (p Policy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %g", p.Multiplier)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	return nil
}

// Operation is any fallible unit of work. It must be safe to invoke again
// after returning an error.
type Operation func(ctx context.Context) error

// ExhaustedError reports that an operation failed on every attempt the
// policy allowed. It wraps the last error returned by the operation.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Executor runs operations under a retry policy. Retries are strictly
// sequential; an operation is never in flight concurrently with itself.
type Executor struct {
	logger zerolog.Logger

	// OnRetry, if set, is invoked before each backoff sleep with the
	// failed attempt number and the delay about to be taken. Used to
	// wire metrics and to observe delays in tests.
	OnRetry func(name string, attempt int, delay time.Duration)
}

// NewExecutor creates an executor that logs one warning per failed attempt.
func NewExecutor(logger zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "retry").Logger(),
	}
}

// Do invokes op until it succeeds or the policy's attempt budget is spent.
// On exhaustion it returns *ExhaustedError wrapping the last failure; this
// is always surfaced, never swallowed. A cancelled context aborts the wait
// between attempts and returns the context error.
func (e *Executor) Do(ctx context.Context, name string, policy Policy, op Operation) error {
	if err := policy.validate(); err != nil {
		return fmt.Errorf("invalid retry policy for %s: %w", name, err)
	}

	delay := policy.InitialDelay
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if attempt >= policy.MaxAttempts {
			return &ExhaustedError{Name: name, Attempts: attempt, Err: err}
		}

		e.logger.Warn().
			Str("operation", name).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("retry_in", delay).
			Err(err).
			Msg("Operation failed, retrying")

		if e.OnRetry != nil {
			e.OnRetry(name, attempt, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}
