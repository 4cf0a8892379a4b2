package watchlist

import (
	"context"
	"sync"
	"time"
)

// MemoryWatchlist is a single-process implementation for tests and dev mode.
type MemoryWatchlist struct {
	mu      sync.Mutex
	ttl     time.Duration
	expires map[string]time.Time
	now     func() time.Time
}

type MemoryOption func(*MemoryWatchlist)

func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(w *MemoryWatchlist) { w.ttl = ttl }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(w *MemoryWatchlist) { w.now = now }
}

func NewMemory(opts ...MemoryOption) *MemoryWatchlist {
	w := &MemoryWatchlist{
		ttl:     DefaultTTL,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *MemoryWatchlist) Flag(_ context.Context, actorID string) error {
	if actorID == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expires[actorID] = w.now().Add(w.ttl)
	return nil
}

func (w *MemoryWatchlist) Unflag(_ context.Context, actorID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.expires, actorID)
	return nil
}

func (w *MemoryWatchlist) Flagged(_ context.Context, actorID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	deadline, ok := w.expires[actorID]
	if !ok {
		return false, nil
	}
	if w.now().After(deadline) {
		delete(w.expires, actorID)
		return false, nil
	}
	return true, nil
}
