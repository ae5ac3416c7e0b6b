package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bringup/bringup/pkg/config"
	"github.com/bringup/bringup/pkg/lockfile"
	"github.com/bringup/bringup/pkg/markers"
)

func newStatusCommand() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show provisioning state of this host",
		Long: `Show the durable provisioning state: completion markers with their
timestamps and whether a provisioning or bootstrap run currently holds
its lock. With --follow, keep watching the state directory and report
changes as they happen.`,
		Example: `  # One-shot status
  bringup status

  # Watch a provisioning run progress from another terminal
  bringup status --follow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			printStatus(cfg)

			if !follow {
				return nil
			}
			return followStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "watch for state changes")

	return cmd
}

func printStatus(cfg *config.Config) {
	store := markers.NewFSStore(markersDir(cfg))

	completedAt, err := store.CompletedAt(depsInstalledMarker)
	switch {
	case err != nil:
		fmt.Printf("marker %-16s error: %v\n", depsInstalledMarker, err)
	case completedAt.IsZero():
		fmt.Printf("marker %-16s absent\n", depsInstalledMarker)
	default:
		fmt.Printf("marker %-16s completed %s\n", depsInstalledMarker, completedAt.Format("2006-01-02 15:04:05 MST"))
	}

	locker := lockfile.NewFlockLocker(locksDir(cfg))
	states := lockStates(locker)
	for _, resource := range watchedLocks {
		fmt.Printf("lock   %-16s %s\n", resource, states[resource])
	}
}

// watchedLocks are the resources status reports on.
var watchedLocks = []string{provisionLockResource, bootstrapLockResource}

func lockStates(locker lockfile.Locker) map[string]string {
	states := make(map[string]string, len(watchedLocks))
	for _, resource := range watchedLocks {
		states[resource] = lockState(locker, resource)
	}
	return states
}

// lockState probes a lock without disturbing a holder: a successful
// acquire is released immediately and means the lock was free.
func lockState(locker lockfile.Locker, resource string) string {
	handle, err := locker.TryAcquire(resource)
	if errors.Is(err, lockfile.ErrAlreadyHeld) {
		return "held"
	}
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	_ = handle.Release()
	return "free"
}

func followStatus(cmd *cobra.Command, cfg *config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{markersDir(cfg), locksDir(cfg)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	// Releasing an flock emits no filesystem event and lock files stay in
	// place, so lock-state changes are picked up by polling; the watcher
	// only covers marker and lock file creation.
	locker := lockfile.NewFlockLocker(locksDir(cfg))
	lastLocks := lockStates(locker)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	fmt.Println("Watching for changes (Ctrl-C to stop)...")
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			fmt.Printf("\n%s %s\n", event.Op, event.Name)
			printStatus(cfg)
			lastLocks = lockStates(locker)
		case <-ticker.C:
			current := lockStates(locker)
			for _, resource := range watchedLocks {
				if current[resource] != lastLocks[resource] {
					fmt.Printf("\nlock %s: %s -> %s\n", resource, lastLocks[resource], current[resource])
				}
			}
			lastLocks = current
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
