package ingestion

import (
	"errors"
	"sync/atomic"
)

// ErrIngestionInProgress is returned when a bulk ingestion is already running
var ErrIngestionInProgress = errors.New("ingestion already in progress")

// Lock prevents concurrent bulk ingestions. Single-writer SQLite makes a
// second concurrent batch pointless; it would only contend.
type Lock struct {
	held atomic.Int32
}

// TryAcquire attempts to take the lock without blocking
func (l *Lock) TryAcquire() bool {
	return l.held.CompareAndSwap(0, 1)
}

// Release frees the lock
func (l *Lock) Release() {
	l.held.Store(0)
}

// IsHeld reports whether a bulk ingestion is running
func (l *Lock) IsHeld() bool {
	return l.held.Load() == 1
}
