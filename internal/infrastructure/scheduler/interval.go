// Package scheduler drives periodic jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"NewsSentiment/internal/ports"
)

// IntervalScheduler fires a job immediately and then once per interval.
type IntervalScheduler struct {
	interval time.Duration
	clock    clockwork.Clock

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler. A nil clock means the real clock.
func NewIntervalScheduler(interval time.Duration, clock clockwork.Clock) *IntervalScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IntervalScheduler{interval: interval, clock: clock}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	// The first run is stamped before the ticker exists so the first tick
	// lands at least one interval later.
	start := s.clock.Now()
	ticker := s.clock.NewTicker(s.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		job(start)
		for {
			select {
			case t := <-ticker.Chan():
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine and waits for an in-progress job, bounded by ctx.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.stop)
	done := s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
