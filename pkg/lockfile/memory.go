package lockfile

import "sync"

// MemoryLocker is an in-process Locker for tests. It has the same
// non-blocking semantics as FlockLocker but no filesystem footprint.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates an empty in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

// TryAcquire claims resource or fails with ErrAlreadyHeld.
func (l *MemoryLocker) TryAcquire(resource string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[resource] {
		return nil, ErrAlreadyHeld
	}
	l.held[resource] = true
	return &memoryHandle{locker: l, resource: resource}, nil
}

// Held reports whether resource is currently claimed.
func (l *MemoryLocker) Held(resource string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[resource]
}

type memoryHandle struct {
	locker   *MemoryLocker
	resource string
	once     sync.Once
}

func (h *memoryHandle) Release() error {
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.held, h.resource)
		h.locker.mu.Unlock()
	})
	return nil
}
