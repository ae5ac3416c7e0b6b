package commands

import (
	"path/filepath"

	"github.com/bringup/bringup/pkg/config"
	"github.com/bringup/bringup/pkg/telemetry"
)

// Resource and phase names shared between the provision and bootstrap
// entry points. The two locks are independent scopes: the outer run and
// the dependency phase each exclude only their own kind.
const (
	provisionLockResource = "provision"
	bootstrapLockResource = "bootstrap"
	depsInstalledMarker   = "deps-installed"
)

func locksDir(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, "locks")
}

func markersDir(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, "markers")
}

func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, "history.db")
}

// newTelemetryConfig derives the telemetry configuration from the stock
// defaults, the provisioning config and the global flags.
func newTelemetryConfig(cfg *config.Config) telemetry.Config {
	tcfg := telemetry.DefaultConfig()
	tcfg.Logging.File = cfg.LogFile
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	if jsonOutput {
		tcfg.Logging.Format = "json"
	}
	return tcfg
}

// newLogger builds the run logger: console or JSON on stderr, plus the
// durable append-only log file.
func newLogger(cfg *config.Config) (*telemetry.Logger, error) {
	return telemetry.NewLogger(newTelemetryConfig(cfg).Logging)
}
