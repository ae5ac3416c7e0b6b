package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bringup/bringup/pkg/config"
	"github.com/bringup/bringup/pkg/history"
	"github.com/bringup/bringup/pkg/lockfile"
	"github.com/bringup/bringup/pkg/orchestrator"
	"github.com/bringup/bringup/pkg/pkgmgr"
	"github.com/bringup/bringup/pkg/policy"
	"github.com/bringup/bringup/pkg/retry"
	"github.com/bringup/bringup/pkg/sysd"
	"github.com/bringup/bringup/pkg/telemetry"
	"github.com/bringup/bringup/pkg/waiter"
)

func newProvisionCommand(version string) *cobra.Command {
	var (
		metricsAddr   string
		traceExporter string
		traceEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision this host end to end",
		Long: `Run the full provisioning sequence on this host.

This command:
  - Acquires the provisioning lock (exits 0 if another run holds it)
  - Installs OS packages with contention waits and bounded retries
  - Verifies the application source is in place
  - Installs and enables the systemd units
  - Runs the dependency bootstrap unit and waits for its outcome
  - Restarts the main service

The command is idempotent: re-running it on an already provisioned host
converges without repeating completed work.`,
		Example: `  # Provision with the default config
  bringup provision

  # Provision with an explicit config and JSON logs
  bringup provision --config /etc/bringup/config.yaml --json

  # Expose prometheus metrics while the run is in flight
  bringup provision --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tcfg := newTelemetryConfig(cfg)
			tcfg.ServiceVersion = version
			tcfg.Tracing.Enabled = traceExporter != "none"
			tcfg.Tracing.Exporter = traceExporter
			tcfg.Tracing.Endpoint = traceEndpoint
			if err := tcfg.Validate(); err != nil {
				return err
			}

			tlog, err := telemetry.NewLogger(tcfg.Logging)
			if err != nil {
				return err
			}
			defer tlog.Close()
			logger := tlog.Zerolog()

			metrics, err := telemetry.NewMetrics(tcfg.Metrics)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Warn().Err(err).Msg("Metrics listener failed")
					}
				}()
				defer srv.Close()
			}

			tracer, err := telemetry.NewTracer(tcfg.Tracing, tcfg.ServiceName, tcfg.ServiceVersion)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tracer.Shutdown(shutdownCtx)
			}()

			engine := policy.NewEngine(logger)
			if cfg.PolicyDir != "" {
				if err := engine.LoadDir(cfg.PolicyDir); err != nil {
					return err
				}
			}

			var recorder orchestrator.Recorder
			store, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				// History is diagnostic only; a broken database must not
				// block provisioning.
				logger.Warn().Err(err).Msg("Run history unavailable")
			} else {
				defer store.Close()
				recorder = history.NewRecorder(store, logger)
			}

			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to resolve own binary path: %w", err)
			}

			opts := orchestrator.Options{
				LockResource: provisionLockResource,
				Packages:     cfg.Packages,
				PreconditionPaths: []string{
					filepath.Join(cfg.AppDir, "main.py"),
					filepath.Join(cfg.AppDir, "requirements.txt"),
				},
				Units: []orchestrator.UnitFile{
					orchestrator.RenderMainUnit(cfg.MainUnit, cfg.ServiceUser, cfg.AppDir, cfg.Host, cfg.Port),
					orchestrator.RenderBootstrapUnit(cfg.BootstrapUnit, execPath, configPath),
				},
				BootstrapUnit: cfg.BootstrapUnit,
				MainUnit:      cfg.MainUnit,
				ServiceUser:   cfg.ServiceUser,
				Port:          cfg.Port,
				AppDir:        cfg.AppDir,
				RetryPolicy: retry.Policy{
					MaxAttempts:  cfg.Retry.MaxAttempts,
					InitialDelay: cfg.Retry.InitialDelay,
					Multiplier:   cfg.Retry.Multiplier,
					MaxDelay:     cfg.Retry.MaxDelay,
				},
				ContentionInterval: cfg.Poll.ContentionInterval,
				StateInterval:      cfg.Poll.StateInterval,
				StateIterations:    cfg.Poll.StateIterations,
			}

			p := orchestrator.New(opts, orchestrator.Deps{
				Locker:     lockfile.NewFlockLocker(locksDir(cfg)),
				Supervisor: sysd.NewSystemdSupervisor(logger, sysd.DefaultUnitDir),
				Packages:   pkgmgr.NewAptManager(logger),
				Retry:      retry.NewExecutor(logger),
				Waiter:     waiter.NewContentionWaiter(logger),
				Policy:     engine,
				Recorder:   recorder,
				Metrics:    metrics,
				Tracer:     tracer,
				Logger:     logger,
			})

			out, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			if out.AlreadyRunning {
				fmt.Println("Another provisioning run is in progress; nothing to do.")
				return nil
			}

			fmt.Printf("Provisioning complete (run %s)\n", out.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during the run")
	cmd.Flags().StringVar(&traceExporter, "trace-exporter", "none", "trace exporter (otlp, stdout, none)")
	cmd.Flags().StringVar(&traceEndpoint, "trace-endpoint", "localhost:4317", "OTLP collector endpoint")

	return cmd
}

// openHistory opens and migrates the run-history database.
func openHistory(ctx context.Context, cfg *config.Config) (*history.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	store, err := history.NewSQLiteStore(historyPath(cfg))
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
