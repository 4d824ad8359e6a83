package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/retry"
)

type recordingNotifier struct {
	mu      sync.Mutex
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}

func newTestScheduler(f *fixture, notifier *recordingNotifier) *Scheduler {
	deps := SchedulerDeps{
		Service: f.service,
		Retries: f.retries,
		Policy:  retry.Policy{MaxAttempts: 3, InitialBackoff: time.Minute, MaxBackoff: time.Hour},
		Tickers: []string{"AAPL"},
	}
	// Avoid storing a typed nil pointer in the interface.
	if notifier != nil {
		deps.Notifier = notifier
	}
	return NewScheduler(deps)
}

func TestScheduler_RunOncePublishesDigest(t *testing.T) {
	f := newFixture()
	f.feed.items = newsItems(2)
	notifier := &recordingNotifier{}

	report, err := newTestScheduler(f, notifier).RunOnce(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, []string{"AAPL"}, f.feed.last.Tickers)

	require.Len(t, notifier.digests, 1)
	assert.Contains(t, notifier.digests[0], "2 created")
	assert.Contains(t, notifier.digests[0], "Headline 1")
	assert.Contains(t, notifier.digests[0], "Very Positive sentiment")
}

func TestScheduler_NoDigestWithoutCreated(t *testing.T) {
	f := newFixture()
	notifier := &recordingNotifier{}

	_, err := newTestScheduler(f, notifier).RunOnce(context.Background(), testNow)
	require.NoError(t, err)
	assert.Empty(t, notifier.digests)
}

func TestScheduler_RetriesThenDeadLetters(t *testing.T) {
	f := newFixture()
	f.ingestor.primary = unavailableScorer("classifier", "connection refused")
	f.feed.items = newsItems(1)
	s := newTestScheduler(f, nil)
	ctx := context.Background()

	tick := testNow
	report, err := s.RunOnce(ctx, tick)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	pending, dead := f.retries.Len()
	assert.Equal(t, 1, pending)
	assert.Zero(t, dead)

	f.feed.items = nil
	for attempt := 2; attempt <= 3; attempt++ {
		tick = tick.Add(time.Hour)
		report, err = s.RunOnce(ctx, tick)
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1, "attempt %d drains the retry", attempt)
		assert.Equal(t, domain.OutcomeFailed, report.Outcomes[0].Kind)
	}

	pending, dead = f.retries.Len()
	assert.Zero(t, pending)
	assert.Equal(t, 1, dead)
}

func TestScheduler_RetrySucceeds(t *testing.T) {
	f := newFixture()
	f.ingestor.primary = unavailableScorer("classifier", "timeout")
	f.feed.items = newsItems(1)
	s := newTestScheduler(f, nil)
	s.policy.InitialBackoff = 7 * time.Minute
	ctx := context.Background()

	_, err := s.RunOnce(ctx, testNow)
	require.NoError(t, err)

	f.ingestor.primary = f.primary
	f.feed.items = nil

	// Backoff has not elapsed: the envelope stays queued.
	report, err := s.RunOnce(ctx, testNow.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)

	report, err = s.RunOnce(ctx, testNow.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	pending, dead := f.retries.Len()
	assert.Zero(t, pending)
	assert.Zero(t, dead)
}

func TestScheduler_RejectsTooSoon(t *testing.T) {
	f := newFixture()
	s := newTestScheduler(f, nil)

	_, err := s.RunOnce(context.Background(), testNow)
	require.NoError(t, err)
	_, err = s.RunOnce(context.Background(), testNow.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrTooSoon)
}
