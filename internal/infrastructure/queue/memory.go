// Package queue holds the in-process retry queue used when Redis is not configured.
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// MemoryRetryQueue is a mutex-guarded RetryQueue. Contents are lost on restart.
type MemoryRetryQueue struct {
	mu      sync.Mutex
	pending []domain.RetryEnvelope
	dead    []domain.RetryEnvelope
}

var _ ports.RetryQueue = (*MemoryRetryQueue)(nil)

// NewMemoryRetryQueue returns an empty queue.
func NewMemoryRetryQueue() *MemoryRetryQueue {
	return &MemoryRetryQueue{}
}

// Enqueue schedules env for env.NotBefore.
func (q *MemoryRetryQueue) Enqueue(_ context.Context, env domain.RetryEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, env)
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].NotBefore.Before(q.pending[j].NotBefore)
	})
	return nil
}

// Due pops up to max envelopes whose NotBefore is at or before now.
func (q *MemoryRetryQueue) Due(_ context.Context, now time.Time, max int) ([]domain.RetryEnvelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.pending) && n < max && !q.pending[n].NotBefore.After(now) {
		n++
	}
	if n == 0 {
		return nil, nil
	}

	due := make([]domain.RetryEnvelope, n)
	copy(due, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	return due, nil
}

// DeadLetter keeps env for inspection.
func (q *MemoryRetryQueue) DeadLetter(_ context.Context, env domain.RetryEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, env)
	return nil
}

// Len reports pending and dead-lettered counts.
func (q *MemoryRetryQueue) Len() (pending, dead int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.dead)
}
