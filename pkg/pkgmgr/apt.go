package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// aptLockPaths are the files apt and dpkg hold exclusive flocks on while
// operating.
var aptLockPaths = []string{
	"/var/lib/dpkg/lock-frontend",
	"/var/lib/dpkg/lock",
	"/var/lib/apt/lists/lock",
	"/var/cache/apt/archives/lock",
}

// AptManager implements Manager for Debian-family hosts.
type AptManager struct {
	logger zerolog.Logger
}

// NewAptManager creates an apt-backed package manager.
func NewAptManager(logger zerolog.Logger) *AptManager {
	return &AptManager{
		logger: logger.With().Str("component", "apt").Logger(),
	}
}

// UpdateIndex runs apt-get update.
func (m *AptManager) UpdateIndex(ctx context.Context) error {
	return m.run(ctx, "update")
}

// Install runs apt-get install -y for the package list.
func (m *AptManager) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	return m.run(ctx, "install", append([]string{"-y"}, packages...)...)
}

// LockPaths returns apt's internal lock files.
func (m *AptManager) LockPaths() []string {
	return aptLockPaths
}

func (m *AptManager) run(ctx context.Context, action string, args ...string) error {
	cmd := exec.CommandContext(ctx, "apt-get", append([]string{action}, args...)...)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")

	output, err := cmd.CombinedOutput()
	if err != nil {
		m.logger.Error().
			Str("action", action).
			Str("output", tail(string(output), 2048)).
			Err(err).
			Msg("apt-get failed")
		return fmt.Errorf("apt-get %s failed: %w", action, err)
	}

	m.logger.Debug().Str("action", action).Msg("apt-get succeeded")
	return nil
}

// tail returns the last n bytes of s, trimmed to whole lines.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
