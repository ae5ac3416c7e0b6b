package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bringup/bringup/pkg/lockfile"
	"github.com/bringup/bringup/pkg/markers"
	"github.com/bringup/bringup/pkg/retry"
)

// Runner executes a host command in a working directory. It is the seam
// between the bootstrap phase and the opaque application runtime.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// ExecRunner runs commands via os/exec, logging output on failure.
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a production runner.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger.With().Str("component", "runner").Logger()}
}

// Run executes argv with dir as working directory.
func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Error().
			Str("command", strings.Join(argv, " ")).
			Str("output", strings.TrimSpace(string(output))).
			Err(err).
			Msg("Command failed")
		return fmt.Errorf("%s failed: %w", argv[0], err)
	}
	return nil
}

// BootstrapOptions configures the dependency-install phase.
type BootstrapOptions struct {
	// LockResource and MarkerPhase scope this phase's mutual exclusion
	// and idempotency independently of the outer provisioning run.
	LockResource string
	MarkerPhase  string

	// AppDir is the working directory for every step.
	AppDir string

	// CreateEnvCmd materializes the private runtime environment.
	// InstallDepsCmd installs the application's dependencies into it.
	// VerifyCmd is the smoke check that the installed runtime exposes
	// the expected entry interface.
	CreateEnvCmd   []string
	InstallDepsCmd []string
	VerifyCmd      []string

	// RetryPolicy bounds the dependency install, which may hit flaky
	// networks. Environment creation and verification are local and
	// run once.
	RetryPolicy retry.Policy
}

// BootstrapOutcome describes how a bootstrap run ended.
type BootstrapOutcome struct {
	AlreadyRunning bool
	AlreadyDone    bool
}

// Bootstrap is the dependency-install phase: the same pattern as the
// outer orchestrator, with its own lock and its own completion marker so
// it is safe to invoke repeatedly from any path.
type Bootstrap struct {
	opts     BootstrapOptions
	locker   lockfile.Locker
	markers  markers.Store
	exec     *retry.Executor
	runner   Runner
	recorder Recorder
	logger   zerolog.Logger
}

// BootstrapDeps are the bootstrap phase's collaborators.
type BootstrapDeps struct {
	Locker   lockfile.Locker
	Markers  markers.Store
	Retry    *retry.Executor
	Runner   Runner
	Recorder Recorder
	Logger   zerolog.Logger
}

// NewBootstrap creates the dependency-install phase.
func NewBootstrap(opts BootstrapOptions, deps BootstrapDeps) *Bootstrap {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	return &Bootstrap{
		opts:     opts,
		locker:   deps.Locker,
		markers:  deps.Markers,
		exec:     deps.Retry,
		runner:   deps.Runner,
		recorder: deps.Recorder,
		logger:   deps.Logger.With().Str("component", "bootstrap").Logger(),
	}
}

// Run executes the bootstrap sequence: check the marker, create the
// runtime environment, install dependencies, verify the entrypoint, and
// only then record the marker. A failed verification leaves no marker, so
// the next run reinstalls from scratch.
func (b *Bootstrap) Run(ctx context.Context) (*BootstrapOutcome, error) {
	out := &BootstrapOutcome{}

	handle, err := b.locker.TryAcquire(b.opts.LockResource)
	if errors.Is(err, lockfile.ErrAlreadyHeld) {
		b.logger.Info().
			Str("resource", b.opts.LockResource).
			Msg("Another instance holds the lock, nothing to do")
		out.AlreadyRunning = true
		return out, nil
	}
	if err != nil {
		return out, err
	}
	defer func() { _ = handle.Release() }()

	done, err := b.markers.Has(b.opts.MarkerPhase)
	if err != nil {
		return out, fmt.Errorf("failed to check completion marker: %w", err)
	}
	if done {
		b.logger.Info().
			Str("phase", b.opts.MarkerPhase).
			Msg("Dependencies already installed, skipping")
		out.AlreadyDone = true
		return out, nil
	}

	b.logger.Info().Str("app_dir", b.opts.AppDir).Msg("Creating runtime environment")
	if err := b.runner.Run(ctx, b.opts.AppDir, b.opts.CreateEnvCmd); err != nil {
		return out, fmt.Errorf("failed to create runtime environment: %w", err)
	}

	b.logger.Info().Msg("Installing dependencies")
	install := func(ctx context.Context) error {
		return b.runner.Run(ctx, b.opts.AppDir, b.opts.InstallDepsCmd)
	}
	if err := b.exec.Do(ctx, "install dependencies", b.opts.RetryPolicy, install); err != nil {
		return out, err
	}

	b.logger.Info().Msg("Verifying application entrypoint")
	if err := b.runner.Run(ctx, b.opts.AppDir, b.opts.VerifyCmd); err != nil {
		// No marker: the next run must reinstall from scratch.
		return out, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if err := b.markers.Record(b.opts.MarkerPhase); err != nil {
		return out, fmt.Errorf("failed to record completion marker: %w", err)
	}

	b.logger.Info().Str("phase", b.opts.MarkerPhase).Msg("Bootstrap complete")
	return out, nil
}
