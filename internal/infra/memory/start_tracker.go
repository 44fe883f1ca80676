package memory

import (
	"context"
	"sync"
	"time"
)

// StartTracker is an in-memory implementation of app.StartTracker.
type StartTracker struct {
	mu     sync.RWMutex
	starts map[string]time.Time
}

// NewStartTracker keeps start times in process memory.
func NewStartTracker() *StartTracker {
	return &StartTracker{
		starts: make(map[string]time.Time),
	}
}

func (t *StartTracker) MarkStarted(_ context.Context, email string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[email] = at
	return nil
}

func (t *StartTracker) StartedAt(_ context.Context, email string) (time.Time, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.starts[email]
	return at, ok, nil
}
