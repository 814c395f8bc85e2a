package importer

import "sync/atomic"

// ImportLock is a non-blocking mutex: a second import fails fast instead of
// queueing behind the first.
type ImportLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking
func (l *ImportLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Only the holder may call it.
func (l *ImportLock) Release() {
	l.state.Store(0)
}

// Locked reports whether an import is running
func (l *ImportLock) Locked() bool {
	return l.state.Load() == 1
}
