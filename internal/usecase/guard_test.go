package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
)

func TestGuard_CeilingAppliesToEveryTrigger(t *testing.T) {
	g := NewScheduleGuard(GuardOptions{Clock: clockwork.NewFakeClockAt(testNow)})

	adm, err := g.Admit(context.Background(), Trigger{Manual: true, Requested: 10000})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxItems, adm.Limit)
	adm.Release()

	adm, err = g.Admit(context.Background(), Trigger{Requested: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxItems, adm.Limit)
	adm.Release()

	adm, err = g.Admit(context.Background(), Trigger{Manual: true, Requested: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, adm.Limit)
	adm.Release()
}

func TestGuard_ClampsIntervalToFloor(t *testing.T) {
	g := NewScheduleGuard(GuardOptions{MinInterval: time.Second})
	assert.Equal(t, config.MinScheduleInterval, g.MinInterval())

	g = NewScheduleGuard(GuardOptions{MinInterval: time.Hour})
	assert.Equal(t, time.Hour, g.MinInterval())
}

func TestGuard_IntervalBetweenAutomaticRuns(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	reg := prometheus.NewRegistry()
	m := metrics.NewGuardMetrics(reg)
	g := NewScheduleGuard(GuardOptions{Clock: clock, Metrics: m})
	ctx := context.Background()

	adm, err := g.Admit(ctx, Trigger{})
	require.NoError(t, err)
	adm.Release()

	clock.Advance(4 * time.Minute)
	_, err = g.Admit(ctx, Trigger{})
	assert.ErrorIs(t, err, domain.ErrTooSoon)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("too_soon")))

	manual, err := g.Admit(ctx, Trigger{Manual: true})
	require.NoError(t, err, "manual triggers bypass the interval")
	manual.Release()

	clock.Advance(time.Minute)
	adm, err = g.Admit(ctx, Trigger{})
	require.NoError(t, err)
	adm.Release()
}

func TestGuard_UsesTickTime(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	g := NewScheduleGuard(GuardOptions{Clock: clock})
	ctx := context.Background()

	adm, err := g.Admit(ctx, Trigger{At: testNow})
	require.NoError(t, err)
	adm.Release()

	// The clock has drifted past the tick but the tick spacing is what counts.
	clock.Advance(5*time.Minute + 3*time.Second)
	adm, err = g.Admit(ctx, Trigger{At: testNow.Add(5 * time.Minute)})
	require.NoError(t, err)
	adm.Release()
}

func TestGuard_NoOverlap(t *testing.T) {
	g := NewScheduleGuard(GuardOptions{Clock: clockwork.NewFakeClockAt(testNow)})
	ctx := context.Background()

	adm, err := g.Admit(ctx, Trigger{Manual: true})
	require.NoError(t, err)

	_, err = g.Admit(ctx, Trigger{Manual: true})
	assert.ErrorIs(t, err, domain.ErrInFlight)

	adm.Release()
	adm.Release()

	again, err := g.Admit(ctx, Trigger{Manual: true})
	require.NoError(t, err)
	again.Release()
}

type fakeLock struct {
	held     bool
	err      error
	releases int
}

func (l *fakeLock) TryAcquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.releases++
		return nil
	}, true, nil
}

func TestGuard_DistributedLock(t *testing.T) {
	lock := &fakeLock{}
	g := NewScheduleGuard(GuardOptions{Clock: clockwork.NewFakeClockAt(testNow), Lock: lock})
	ctx := context.Background()

	lock.held = true
	_, err := g.Admit(ctx, Trigger{Manual: true})
	assert.ErrorIs(t, err, domain.ErrInFlight)

	lock.held = false
	adm, err := g.Admit(ctx, Trigger{Manual: true})
	require.NoError(t, err)
	assert.True(t, lock.held)
	adm.Release()
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.releases)

	lock.err = errors.New("redis down")
	_, err = g.Admit(ctx, Trigger{Manual: true})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInFlight)

	lock.err = nil
	adm, err = g.Admit(ctx, Trigger{Manual: true})
	require.NoError(t, err, "a lock error must not leave the local slot taken")
	adm.Release()
}

func TestGuard_ConcurrentAutomaticTriggersAdmitOnce(t *testing.T) {
	g := NewScheduleGuard(GuardOptions{Clock: clockwork.NewFakeClockAt(testNow)})
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := g.Admit(ctx, Trigger{At: testNow})
			if err != nil {
				return
			}
			admitted.Add(1)
			adm.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}
