package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const (
	retryQueueKey = keyPrefix + "queue:retry"
	deadLetterKey = keyPrefix + "queue:failed"
)

// popDueScript removes and returns up to ARGV[2] members scored at or below ARGV[1].
var popDueScript = goredis.NewScript(`
local items = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
if #items > 0 then
	redis.call("ZREM", KEYS[1], unpack(items))
end
return items
`)

// RetryQueue keeps envelopes in a sorted set scored by NotBefore and
// dead letters in a list.
type RetryQueue struct {
	rdb *goredis.Client
}

var _ ports.RetryQueue = (*RetryQueue)(nil)

// NewRetryQueue returns a queue backed by rdb.
func NewRetryQueue(rdb *goredis.Client) *RetryQueue {
	return &RetryQueue{rdb: rdb}
}

// Enqueue schedules env for env.NotBefore.
func (q *RetryQueue) Enqueue(ctx context.Context, env domain.RetryEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	member := goredis.Z{Score: float64(env.NotBefore.UnixMilli()), Member: string(data)}
	if err := q.rdb.ZAdd(ctx, retryQueueKey, member).Err(); err != nil {
		return fmt.Errorf("enqueue retry: %w", err)
	}
	return nil
}

// Due atomically pops envelopes whose NotBefore is at or before now.
func (q *RetryQueue) Due(ctx context.Context, now time.Time, max int) ([]domain.RetryEnvelope, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := popDueScript.Run(ctx, q.rdb, []string{retryQueueKey},
		strconv.FormatInt(now.UnixMilli(), 10), max).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("pop due retries: %w", err)
	}

	envelopes := make([]domain.RetryEnvelope, 0, len(raw))
	for _, item := range raw {
		var env domain.RetryEnvelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return envelopes, fmt.Errorf("decode envelope: %w", err)
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}

// DeadLetter parks env for manual inspection.
func (q *RetryQueue) DeadLetter(ctx context.Context, env domain.RetryEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, deadLetterKey, string(data)).Err(); err != nil {
		return fmt.Errorf("dead letter: %w", err)
	}
	return nil
}

// Pending reports how many envelopes wait in the retry set.
func (q *RetryQueue) Pending(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, retryQueueKey).Result()
}

// DeadLetters reports how many envelopes were dead-lettered.
func (q *RetryQueue) DeadLetters(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, deadLetterKey).Result()
}
