// Package watchlist tracks actors flagged for enhanced auditing. Anomaly
// findings put an actor on the list for a bounded period; the access
// validator then forces heavier logging on that actor's requests.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acganger/ganger-platform-sub002/pkg/platform/sentinel"
)

const flaggedActorKeyPrefix = "audit:watchlist:actor:"

// DefaultTTL is how long an actor stays flagged without re-flagging.
const DefaultTTL = 24 * time.Hour

// Watchlist is the full read/write surface both implementations provide.
// Consumers depend on their own narrower interfaces; this one is for the
// composition root, which hands the same list to a writer and a reader.
type Watchlist interface {
	Flag(ctx context.Context, actorID string) error
	Unflag(ctx context.Context, actorID string) error
	Flagged(ctx context.Context, actorID string) (bool, error)
}

// RedisWatchlist is the production implementation, shared across instances.
type RedisWatchlist struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisWatchlist)

// WithTTL overrides the flag lifetime.
func WithTTL(ttl time.Duration) RedisOption {
	return func(w *RedisWatchlist) { w.ttl = ttl }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisWatchlist {
	w := &RedisWatchlist{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Flag puts an actor on the watchlist with the configured TTL. Re-flagging
// restarts the clock.
func (w *RedisWatchlist) Flag(ctx context.Context, actorID string) error {
	if actorID == "" {
		return nil
	}
	// Store "1" as a simple marker; the key existence is what matters
	return w.client.Set(ctx, flaggedActorKeyPrefix+actorID, "1", w.ttl).Err()
}

// Unflag removes an actor from the watchlist.
func (w *RedisWatchlist) Unflag(ctx context.Context, actorID string) error {
	if actorID == "" {
		return nil
	}
	return w.client.Del(ctx, flaggedActorKeyPrefix+actorID).Err()
}

// Flagged reports whether the actor is currently on the watchlist. An
// expired or absent key means not flagged.
func (w *RedisWatchlist) Flagged(ctx context.Context, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	_, err := w.client.Get(ctx, flaggedActorKeyPrefix+actorID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: watchlist lookup: %v", sentinel.ErrUnavailable, err)
	}
	return true, nil
}
