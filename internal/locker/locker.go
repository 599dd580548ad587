// Package locker tracks which banks have a reconciliation run in progress.
package locker

import "sync"

// Locker is a set of held keys, safe for concurrent use.
type Locker struct {
	mu         sync.Mutex
	inProgress map[string]bool
}

// New returns a Locker with no keys held.
func New() *Locker {
	return &Locker{
		inProgress: make(map[string]bool),
	}
}

// TryLock marks key as in progress. It returns false if key is already held.
func (l *Locker) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inProgress[key] {
		return false
	}
	l.inProgress[key] = true
	return true
}

// IsLocked reports whether key is currently held.
func (l *Locker) IsLocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inProgress[key]
}

// Unlock releases key. Releasing a key that is not held is a no-op.
func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inProgress, key)
}
