// Package retry holds the backoff policy for failed ingests and a small
// blocking retry helper for startup dependencies.
package retry

import (
	"context"
	"fmt"
	"time"

	"NewsSentiment/internal/domain"
)

// Policy bounds retries with exponential backoff.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Delay returns the backoff before attempt n (1-based) is retried:
// InitialBackoff doubled per prior attempt, capped at MaxBackoff.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Next advances an envelope after a failed attempt. exhausted is true when
// the envelope has used all attempts and belongs in the dead letter store.
func (p Policy) Next(env domain.RetryEnvelope, reason string, now time.Time) (next domain.RetryEnvelope, exhausted bool) {
	env.Attempt++
	env.LastError = reason
	if env.Attempt >= p.MaxAttempts {
		return env, true
	}
	env.NotBefore = now.Add(p.Delay(env.Attempt))
	return env, false
}

// Do runs op until it succeeds, MaxAttempts is reached or ctx ends.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
