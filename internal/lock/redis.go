package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const retryInterval = 25 * time.Millisecond

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lock shared by every instance using the same Redis
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker creates a locker whose locks expire after ttl and whose
// Acquire gives up after wait
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
		}
		if ok {
			return func() {
				// request context may already be cancelled
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
					log.Printf("[LOCK] Failed to release %s: %v", redisKey, err)
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
