package waiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoll_CondTrueImmediately(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, 5, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 check, got %d", calls)
	}
}

func TestPoll_CondBecomesTrue(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, 10, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestPoll_BoundedIterations(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, 4, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrIterationsExhausted) {
		t.Fatalf("expected ErrIterationsExhausted, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected exactly 4 checks, got %d", calls)
	}
}

func TestPoll_CondErrorAborts(t *testing.T) {
	boom := errors.New("probe failed")
	err := Poll(context.Background(), time.Millisecond, 10, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

func TestPoll_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		// Unbounded poll that never succeeds.
		done <- Poll(ctx, time.Hour, 0, func(ctx context.Context) (bool, error) {
			return false, nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not return after cancellation")
	}
}

func TestWaitUntilFree_BlocksWhileHeld(t *testing.T) {
	w := NewContentionWaiter(zerolog.New(nil).Level(zerolog.Disabled))

	heldChecks := 0
	w.probe = func(path string) bool {
		if path != "/var/lib/dpkg/lock" {
			return false
		}
		heldChecks++
		return heldChecks < 3
	}

	paths := []string{"/var/lib/dpkg/lock-frontend", "/var/lib/dpkg/lock"}
	err := w.WaitUntilFree(context.Background(), paths, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if heldChecks != 3 {
		t.Errorf("expected 3 probes of the held path, got %d", heldChecks)
	}
}

func TestWaitUntilFree_MissingFilesAreFree(t *testing.T) {
	w := NewContentionWaiter(zerolog.New(nil).Level(zerolog.Disabled))

	err := w.WaitUntilFree(context.Background(), []string{"/nonexistent/lock"}, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
