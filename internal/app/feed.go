package app

import (
	"sync"

	"quiz-submission-service/internal/domain"
)

// AttemptFeed fans committed attempts out to live subscribers (admin dashboards).
type AttemptFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.AttemptSummary]struct{}
	buffer      int
}

func NewAttemptFeed() *AttemptFeed {
	return &AttemptFeed{
		subscribers: make(map[chan domain.AttemptSummary]struct{}),
		buffer:      8,
	}
}

// Subscribe returns a channel receiving new attempts.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *AttemptFeed) Subscribe() (<-chan domain.AttemptSummary, func()) {
	ch := make(chan domain.AttemptSummary, f.buffer)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an attempt without blocking; a full subscriber loses its oldest update.
func (f *AttemptFeed) Publish(summary domain.AttemptSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- summary:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- summary
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *AttemptFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
