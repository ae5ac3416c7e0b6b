package sysd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultUnitDir is where systemd looks for administrator-installed units.
const DefaultUnitDir = "/etc/systemd/system"

// SystemdSupervisor implements Supervisor by shelling out to systemctl and
// journalctl.
type SystemdSupervisor struct {
	unitDir string
	logger  zerolog.Logger
}

// NewSystemdSupervisor creates a supervisor writing units to unitDir. An
// empty unitDir means DefaultUnitDir.
func NewSystemdSupervisor(logger zerolog.Logger, unitDir string) *SystemdSupervisor {
	if unitDir == "" {
		unitDir = DefaultUnitDir
	}
	return &SystemdSupervisor{
		unitDir: unitDir,
		logger:  logger.With().Str("component", "systemd").Logger(),
	}
}

// InstallUnit writes the unit file and issues a daemon-reload.
func (s *SystemdSupervisor) InstallUnit(ctx context.Context, name string, definition []byte) error {
	path := filepath.Join(s.unitDir, name)
	if err := os.WriteFile(path, definition, 0o644); err != nil {
		return fmt.Errorf("failed to write unit %s: %w", name, err)
	}

	if err := s.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}

	s.logger.Info().Str("unit", name).Str("path", path).Msg("Unit installed")
	return nil
}

// Enable enables the unit for boot-time start.
func (s *SystemdSupervisor) Enable(ctx context.Context, name string) error {
	return s.systemctl(ctx, "enable", name)
}

// Start starts the unit.
func (s *SystemdSupervisor) Start(ctx context.Context, name string) error {
	return s.systemctl(ctx, "start", name)
}

// Restart restarts the unit.
func (s *SystemdSupervisor) Restart(ctx context.Context, name string) error {
	return s.systemctl(ctx, "restart", name)
}

// QueryState maps `systemctl is-active` output onto State. is-active exits
// non-zero for anything but active, so the exit code alone is not a signal.
func (s *SystemdSupervisor) QueryState(ctx context.Context, name string) (State, error) {
	cmd := exec.CommandContext(ctx, "systemctl", "is-active", name)
	output, _ := cmd.Output()

	switch strings.TrimSpace(string(output)) {
	case "active":
		return StateActive, nil
	case "failed":
		return StateFailed, nil
	case "activating":
		return StateActivating, nil
	case "inactive", "deactivating":
		return StateInactive, nil
	case "":
		return StateInactive, fmt.Errorf("systemctl is-active produced no output for %s", name)
	default:
		return StateInactive, nil
	}
}

// FetchLogs returns the unit's journal output.
func (s *SystemdSupervisor) FetchLogs(ctx context.Context, name string, sinceBoot bool) (string, error) {
	args := []string{"-u", name, "--no-pager"}
	if sinceBoot {
		args = append(args, "-b")
	}

	cmd := exec.CommandContext(ctx, "journalctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to fetch logs for %s: %w", name, err)
	}
	return string(output), nil
}

func (s *SystemdSupervisor) systemctl(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
