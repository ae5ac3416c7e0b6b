package commands

import (
	"strings"
	"testing"

	"github.com/bringup/bringup/pkg/config"
	"github.com/bringup/bringup/pkg/lockfile"
)

func TestNewBootstrapOptions_VerifyLoadsEntryObject(t *testing.T) {
	cfg := config.Default()
	opts := newBootstrapOptions(&cfg)

	// Importing the module alone is not enough: a main.py without an app
	// attribute must fail verification, not crash-loop under systemd.
	verify := strings.Join(opts.VerifyCmd, " ")
	if !strings.Contains(verify, "from main import app") {
		t.Errorf("verify command does not load the entry object: %q", verify)
	}

	if opts.AppDir != cfg.AppDir {
		t.Errorf("unexpected app dir: %s", opts.AppDir)
	}
	if opts.MarkerPhase != depsInstalledMarker {
		t.Errorf("unexpected marker phase: %s", opts.MarkerPhase)
	}
	if opts.RetryPolicy.MaxAttempts != cfg.Retry.MaxAttempts {
		t.Errorf("retry policy not taken from config: %+v", opts.RetryPolicy)
	}
}

func TestLockStates_ReflectHolders(t *testing.T) {
	locker := lockfile.NewMemoryLocker()

	states := lockStates(locker)
	for _, resource := range watchedLocks {
		if states[resource] != "free" {
			t.Errorf("lock %s: expected free, got %s", resource, states[resource])
		}
	}

	handle, err := locker.TryAcquire(provisionLockResource)
	if err != nil {
		t.Fatalf("failed to acquire: %v", err)
	}

	states = lockStates(locker)
	if states[provisionLockResource] != "held" {
		t.Errorf("expected held, got %s", states[provisionLockResource])
	}
	if states[bootstrapLockResource] != "free" {
		t.Errorf("bootstrap lock affected by provision lock: %s", states[bootstrapLockResource])
	}

	// Probing must not disturb the holder.
	if err := handle.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	states = lockStates(locker)
	if states[provisionLockResource] != "free" {
		t.Errorf("expected free after release, got %s", states[provisionLockResource])
	}
}
