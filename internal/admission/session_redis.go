package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long a join session's attempt counter lives.
// After the TTL the counter disappears and the user gets a fresh budget.
const DefaultSessionTTL = 10 * time.Minute

// RedisAttemptStore keeps join-session attempt counters in Redis so the
// budget holds across server instances. Counters are plain INCR keys with a
// TTL set on first use.
type RedisAttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAttemptStore creates a Redis-backed attempt store. A ttl <= 0
// falls back to DefaultSessionTTL.
func NewRedisAttemptStore(client *redis.Client, ttl time.Duration) *RedisAttemptStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisAttemptStore{client: client, ttl: ttl}
}

// Bump increments the session counter and returns the new total
func (s *RedisAttemptStore) Bump(ctx context.Context, key string) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to bump attempt counter: %w", err)
	}

	return int(incr.Val()), nil
}

// Clear deletes the session counter
func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}
