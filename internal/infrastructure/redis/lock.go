package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"NewsSentiment/internal/ports"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a SET NX PX lock shared by every process pointed at the same Redis.
type RunLock struct {
	rdb *goredis.Client
}

var _ ports.RunLock = (*RunLock)(nil)

// NewRunLock returns a lock backed by rdb.
func NewRunLock(rdb *goredis.Client) *RunLock {
	return &RunLock{rdb: rdb}
}

// TryAcquire takes the lock without waiting. The lock expires after ttl even
// if release is never called.
func (l *RunLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	k := lockKey(key)

	_, err := l.rdb.SetArgs(ctx, k, token, goredis.SetArgs{TTL: ttl, Mode: "NX"}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{k}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

func lockKey(key string) string {
	return keyPrefix + "lock:" + key
}
