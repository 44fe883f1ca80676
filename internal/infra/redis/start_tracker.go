package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartTracker is a Redis-backed implementation of app.StartTracker, shared
// across instances. Keys expire after ttl so abandoned starts do not pile up.
type StartTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStartTracker(client *redis.Client, ttl time.Duration) *StartTracker {
	return &StartTracker{client: client, ttl: ttl}
}

func (t *StartTracker) MarkStarted(ctx context.Context, email string, at time.Time) error {
	return t.client.Set(ctx, t.key(email), at.UnixNano(), t.ttl).Err()
}

func (t *StartTracker) StartedAt(ctx context.Context, email string) (time.Time, bool, error) {
	raw, err := t.client.Get(ctx, t.key(email)).Result()
	if isMiss(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, ns).UTC(), true, nil
}

func (t *StartTracker) key(email string) string {
	return "quiz:start:" + email
}
