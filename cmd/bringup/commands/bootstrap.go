package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bringup/bringup/pkg/config"
	"github.com/bringup/bringup/pkg/lockfile"
	"github.com/bringup/bringup/pkg/markers"
	"github.com/bringup/bringup/pkg/orchestrator"
	"github.com/bringup/bringup/pkg/retry"
)

func newBootstrapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Install application dependencies",
		Long: `Run the dependency-install phase on its own.

This is what the bootstrap systemd unit executes, but it can also be run
by hand. Under its own lock it creates the application's virtualenv,
installs the pinned dependencies with bounded retries, verifies the
entry object loads, and records the completion marker. A present
marker makes the whole command a no-op; a failed verification leaves no
marker so the next run reinstalls from scratch.`,
		Example: `  # Install dependencies for the configured application
  bringup bootstrap

  # Same, against an alternate install
  APP_DIR=/opt/other bringup bootstrap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tlog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer tlog.Close()
			logger := tlog.Zerolog()

			b := orchestrator.NewBootstrap(newBootstrapOptions(cfg), orchestrator.BootstrapDeps{
				Locker:  lockfile.NewFlockLocker(locksDir(cfg)),
				Markers: markers.NewFSStore(markersDir(cfg)),
				Retry:   retry.NewExecutor(logger),
				Runner:  orchestrator.NewExecRunner(logger),
				Logger:  logger,
			})

			out, err := b.Run(cmd.Context())
			if err != nil {
				return err
			}
			switch {
			case out.AlreadyRunning:
				fmt.Println("Another bootstrap is in progress; nothing to do.")
			case out.AlreadyDone:
				fmt.Println("Dependencies already installed.")
			default:
				fmt.Println("Dependencies installed and verified.")
			}
			return nil
		},
	}

	return cmd
}

// newBootstrapOptions builds the dependency-phase configuration. The verify
// command imports the entry object itself, not just the module: a main.py
// without an app attribute must fail here, before the marker is recorded,
// rather than crash-loop under systemd later.
func newBootstrapOptions(cfg *config.Config) orchestrator.BootstrapOptions {
	return orchestrator.BootstrapOptions{
		LockResource:   bootstrapLockResource,
		MarkerPhase:    depsInstalledMarker,
		AppDir:         cfg.AppDir,
		CreateEnvCmd:   []string{"python3", "-m", "venv", ".venv"},
		InstallDepsCmd: []string{".venv/bin/pip", "install", "-r", "requirements.txt"},
		VerifyCmd:      []string{".venv/bin/python", "-c", "from main import app"},
		RetryPolicy: retry.Policy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Multiplier:   cfg.Retry.Multiplier,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
	}
}
