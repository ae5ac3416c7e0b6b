// Package commands wires the bringup CLI: provision drives the full
// host-provisioning state machine, bootstrap runs the dependency-install
// phase on its own, status inspects markers and locks, and history reads
// the run database.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// DefaultConfigPath is where provision and bootstrap look for their
// configuration unless --config overrides it.
const DefaultConfigPath = "/etc/bringup/config.yaml"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bringup",
		Short: "Bringup - single-host provisioning orchestrator",
		Long: `Bringup provisions a host from bare OS to running application service.

It drives one idempotent state machine:
  - Acquire the provisioning lock (a held lock means another instance
    is already doing the work, which counts as success)
  - Install OS packages, waiting out package-manager lock contention
    and retrying transient failures with exponential backoff
  - Verify the application source is present
  - Install and enable the systemd units
  - Run the dependency bootstrap and wait for it to finish
  - Restart the main service

Completed phases leave durable markers, so re-running after a failure
skips work already done.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(newProvisionCommand(version))
	rootCmd.AddCommand(newBootstrapCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
