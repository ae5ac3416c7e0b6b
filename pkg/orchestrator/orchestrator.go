package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/bringup/bringup/pkg/lockfile"
	"github.com/bringup/bringup/pkg/pkgmgr"
	"github.com/bringup/bringup/pkg/policy"
	"github.com/bringup/bringup/pkg/retry"
	"github.com/bringup/bringup/pkg/sysd"
	"github.com/bringup/bringup/pkg/telemetry"
	"github.com/bringup/bringup/pkg/waiter"
)

// ContentionWaiter blocks until externally owned lock files are free.
type ContentionWaiter interface {
	WaitUntilFree(ctx context.Context, paths []string, interval time.Duration) error
}

// Options configures a provisioning run.
type Options struct {
	// LockResource names the mutual-exclusion scope of this entry point.
	LockResource string

	// Packages are the OS packages to install.
	Packages []string

	// PreconditionPaths must all exist before provisioning continues.
	PreconditionPaths []string

	// Units are installed into the supervisor and enabled for boot.
	Units []UnitFile

	// BootstrapUnit is the separately locked dependency-install phase.
	// MainUnit is the long-running service started last.
	BootstrapUnit string
	MainUnit      string

	// ServiceUser, Port and AppDir describe the run for the policy gate.
	ServiceUser string
	Port        int
	AppDir      string

	// RetryPolicy bounds every package-manager operation.
	RetryPolicy retry.Policy

	// ContentionInterval is the re-check interval for package-manager
	// lock contention. StateInterval and StateIterations bound the wait
	// for the bootstrap unit to reach a terminal state.
	ContentionInterval time.Duration
	StateInterval      time.Duration
	StateIterations    int
}

// Deps are the orchestrator's collaborators. Locker, Supervisor, Packages,
// Retry and Waiter are required; the rest default to no-ops when nil.
type Deps struct {
	Locker     lockfile.Locker
	Supervisor sysd.Supervisor
	Packages   pkgmgr.Manager
	Retry      *retry.Executor
	Waiter     ContentionWaiter
	Policy     *policy.Engine
	Recorder   Recorder
	Metrics    *telemetry.Metrics
	Tracer     *telemetry.Tracer
	Logger     zerolog.Logger
}

// Outcome describes how a run ended.
type Outcome struct {
	RunID          string
	FinalState     State
	AlreadyRunning bool
}

// Provisioner is the top-level provisioning state machine.
type Provisioner struct {
	opts     Options
	locker   lockfile.Locker
	sup      sysd.Supervisor
	pkgs     pkgmgr.Manager
	exec     *retry.Executor
	waiter   ContentionWaiter
	policy   *policy.Engine
	recorder Recorder
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	logger   zerolog.Logger

	stat func(path string) error
}

// New creates a provisioner.
func New(opts Options, deps Deps) *Provisioner {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.Metrics == nil {
		deps.Metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}

	p := &Provisioner{
		opts:     opts,
		locker:   deps.Locker,
		sup:      deps.Supervisor,
		pkgs:     deps.Packages,
		exec:     deps.Retry,
		waiter:   deps.Waiter,
		policy:   deps.Policy,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logger:   deps.Logger.With().Str("component", "orchestrator").Logger(),
		stat: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
	}

	if p.exec.OnRetry == nil {
		metrics := p.metrics
		p.exec.OnRetry = func(name string, _ int, _ time.Duration) {
			metrics.RecordRetry(name)
		}
	}

	return p
}

// Run executes the full provisioning sequence. A held lock is not a
// failure: the outcome reports AlreadyRunning and the error is nil, since
// another instance doing the work satisfies the caller. Every other
// failure is fatal, aborts the run and leaves completed phases in place
// for a clean re-run.
func (p *Provisioner) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{
		RunID:      uuid.NewString(),
		FinalState: StateStart,
	}
	logger := p.logger.With().Str("run_id", out.RunID).Logger()

	if err := p.checkPolicy(ctx); err != nil {
		out.FinalState = StateFailed
		logger.Error().Err(err).Msg("Run rejected by policy gate")
		return out, err
	}

	p.recorder.RunStarted(ctx, out.RunID, p.opts.LockResource)
	p.metrics.RecordRunStarted()
	logger.Info().Str("resource", p.opts.LockResource).Msg("Provisioning run starting")

	handle, err := p.locker.TryAcquire(p.opts.LockResource)
	if errors.Is(err, lockfile.ErrAlreadyHeld) {
		logger.Info().
			Str("resource", p.opts.LockResource).
			Msg("Another instance holds the lock, nothing to do")
		out.AlreadyRunning = true
		p.recorder.RunFinished(ctx, out.RunID, "already_running", nil)
		p.metrics.RecordRunCompleted("already_running")
		return out, nil
	}
	if err != nil {
		return out, p.fail(ctx, out, &PhaseError{Phase: StateLockAcquired, Err: err})
	}
	defer func() { _ = handle.Release() }()
	p.reached(ctx, out, StateLockAcquired)

	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateOSDepsInstalled, p.installOSDeps},
		{StatePreconditionsVerified, p.verifyPreconditions},
		{StateUnitsInstalled, p.installUnits},
		{StateDependencyPhaseRunning, p.startDependencyPhase},
		{StateDependencyPhaseComplete, p.awaitDependencyPhase},
		{StateServiceStarted, p.startMainService},
	}

	for _, step := range steps {
		if err := p.runPhase(ctx, out, step.state, step.fn); err != nil {
			return out, p.fail(ctx, out, err)
		}
	}

	out.FinalState = StateDone
	p.recorder.RunFinished(ctx, out.RunID, "done", nil)
	p.metrics.RecordRunCompleted("done")
	logger.Info().Msg("Provisioning complete")
	return out, nil
}

// runPhase executes one transition, timing it and tracing it. On success
// the target state becomes the run's current state.
func (p *Provisioner) runPhase(ctx context.Context, out *Outcome, target State, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	phaseCtx := ctx
	if p.tracer != nil {
		phaseCtx, span = p.tracer.StartPhase(ctx, string(target))
	}

	err := fn(phaseCtx)

	if p.tracer != nil {
		p.tracer.EndPhase(span, err)
	}
	p.metrics.RecordPhaseDuration(string(target), time.Since(start))

	if err != nil {
		return &PhaseError{Phase: target, Err: err}
	}
	p.reached(ctx, out, target)
	return nil
}

func (p *Provisioner) reached(ctx context.Context, out *Outcome, state State) {
	out.FinalState = state
	p.recorder.PhaseReached(ctx, out.RunID, string(state))
	p.logger.Info().
		Str("run_id", out.RunID).
		Str("phase", string(state)).
		Msg("Phase complete")
}

func (p *Provisioner) fail(ctx context.Context, out *Outcome, err error) error {
	reason := err.Error()

	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		p.recorder.PhaseFailed(ctx, out.RunID, string(phaseErr.Phase), reason)
	}

	out.FinalState = StateFailed
	p.recorder.RunFinished(ctx, out.RunID, "failed", &reason)
	p.metrics.RecordRunCompleted("failed")
	p.logger.Error().
		Str("run_id", out.RunID).
		Err(err).
		Msg("Provisioning failed")
	return err
}

// checkPolicy evaluates the policy gate before any side effects.
func (p *Provisioner) checkPolicy(ctx context.Context) error {
	if p.policy == nil {
		return nil
	}

	result, err := p.policy.Evaluate(ctx, &policy.Input{
		Packages:    p.opts.Packages,
		ServiceUser: p.opts.ServiceUser,
		Port:        p.opts.Port,
		AppDir:      p.opts.AppDir,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	for _, v := range result.Violations {
		p.logger.Warn().
			Str("policy", v.Policy).
			Str("severity", v.Severity).
			Msg(v.Message)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %d violation(s)", ErrPolicyDenied, len(result.Violations))
	}
	return nil
}

// installOSDeps refreshes the package index and installs the configured
// packages. Every operation first waits out contention on the package
// manager's own lock files, then runs under the retry budget; exhaustion
// is fatal.
func (p *Provisioner) installOSDeps(ctx context.Context) error {
	ops := []struct {
		name string
		fn   retry.Operation
	}{
		{"update package index", p.pkgs.UpdateIndex},
		{"install packages", func(ctx context.Context) error {
			return p.pkgs.Install(ctx, p.opts.Packages)
		}},
	}

	for _, op := range ops {
		fn := op.fn
		attempt := func(ctx context.Context) error {
			waitStart := time.Now()
			if err := p.waiter.WaitUntilFree(ctx, p.pkgs.LockPaths(), p.opts.ContentionInterval); err != nil {
				return err
			}
			p.metrics.RecordContentionWait(time.Since(waitStart))
			return fn(ctx)
		}
		if err := p.exec.Do(ctx, op.name, p.opts.RetryPolicy, attempt); err != nil {
			return err
		}
	}
	return nil
}

// verifyPreconditions checks required external inputs exist. Missing
// preconditions are fatal immediately; retrying cannot help.
func (p *Provisioner) verifyPreconditions(context.Context) error {
	for _, path := range p.opts.PreconditionPaths {
		if err := p.stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrPreconditionMissing, path)
		}
	}
	return nil
}

// installUnits copies unit definitions into the supervisor and enables
// them. Overwrite-and-reload makes this idempotent without a marker.
func (p *Provisioner) installUnits(ctx context.Context) error {
	for _, unit := range p.opts.Units {
		if err := p.sup.InstallUnit(ctx, unit.Name, unit.Definition); err != nil {
			return err
		}
		if err := p.sup.Enable(ctx, unit.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) startDependencyPhase(ctx context.Context) error {
	return p.sup.Start(ctx, p.opts.BootstrapUnit)
}

// awaitDependencyPhase polls the bootstrap unit until it reports active
// (success), failed (fatal, with captured logs) or the iteration bound is
// hit (fatal timeout). This is the one place external latency is absorbed.
func (p *Provisioner) awaitDependencyPhase(ctx context.Context) error {
	unit := p.opts.BootstrapUnit

	err := waiter.Poll(ctx, p.opts.StateInterval, p.opts.StateIterations, func(ctx context.Context) (bool, error) {
		state, err := p.sup.QueryState(ctx, unit)
		if err != nil {
			return false, err
		}

		switch state {
		case sysd.StateActive:
			return true, nil
		case sysd.StateFailed:
			logs, logErr := p.sup.FetchLogs(ctx, unit, true)
			if logErr != nil {
				p.logger.Warn().Err(logErr).Msg("Could not capture bootstrap logs")
			} else {
				p.logger.Error().
					Str("unit", unit).
					Str("logs", logs).
					Msg("Dependency bootstrap failed")
			}
			return false, fmt.Errorf("%w: %s", ErrSupervisorFailed, unit)
		default:
			return false, nil
		}
	})

	if errors.Is(err, waiter.ErrIterationsExhausted) {
		return fmt.Errorf("%w: %s never became active or failed", ErrPollTimeout, unit)
	}
	return err
}

// startMainService (re)starts the main unit. Fire-and-forget: steady-state
// health is the service's own concern.
func (p *Provisioner) startMainService(ctx context.Context) error {
	return p.sup.Restart(ctx, p.opts.MainUnit)
}
