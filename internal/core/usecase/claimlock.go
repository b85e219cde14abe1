package usecase

import (
	"context"
	"sync"
)

// ClaimLocks is a keyed lock over claim ids. Pipeline steps and stage edits
// share one instance so a step never records a report built from a claim an
// edit has since changed.
type ClaimLocks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewClaimLocks() *ClaimLocks {
	return &ClaimLocks{held: make(map[string]chan struct{})}
}

// TryLock takes the lock for id without waiting.
func (l *ClaimLocks) TryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = make(chan struct{})
	return true
}

// Lock waits for the lock on id until ctx is done.
func (l *ClaimLocks) Lock(ctx context.Context, id string) error {
	for {
		l.mu.Lock()
		released, busy := l.held[id]
		if !busy {
			l.held[id] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *ClaimLocks) Unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if released, ok := l.held[id]; ok {
		delete(l.held, id)
		close(released)
	}
}
