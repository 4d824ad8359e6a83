package scoring

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
)

type stubScorer struct {
	configured bool
	calls      atomic.Int32
	lastText   atomic.Value
	fn         func(ctx context.Context, text string) domain.ScoreOutcome
}

func (s *stubScorer) Name() string     { return "stub" }
func (s *stubScorer) Configured() bool { return s.configured }

func (s *stubScorer) Score(ctx context.Context, text string) domain.ScoreOutcome {
	s.calls.Add(1)
	s.lastText.Store(text)
	return s.fn(ctx, text)
}

func okScorer() *stubScorer {
	return &stubScorer{configured: true, fn: func(context.Context, string) domain.ScoreOutcome {
		return domain.Scored(domain.ScoreResult{Score: 0.3, Confidence: 0.8, Model: "stub"})
	}}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", Truncate("  a\n\tb   c ", 0))
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Len(t, []rune(Truncate(strings.Repeat("ж", 2000), 0)), MaxTextLength)
	assert.Equal(t, "", Truncate("   ", 10))
}

func TestGuardPassesTruncatedText(t *testing.T) {
	t.Parallel()

	s := okScorer()
	g := NewGuard(s, GuardOptions{MaxTextLength: 5})

	out := g.Score(context.Background(), "  hello   world ")
	require.True(t, out.Available)
	assert.Equal(t, "hello", s.lastText.Load())
	assert.Greater(t, out.Result.ProcessingTime, time.Duration(0))
}

func TestGuardNotConfiguredSkipsCall(t *testing.T) {
	t.Parallel()

	s := okScorer()
	s.configured = false
	g := NewGuard(s, GuardOptions{})

	out := g.Score(context.Background(), "text")
	assert.False(t, out.Available)
	assert.Equal(t, "scorer not configured", out.Reason)
	assert.Equal(t, int32(0), s.calls.Load())
}

func TestGuardRecoversPanic(t *testing.T) {
	t.Parallel()

	s := &stubScorer{configured: true, fn: func(context.Context, string) domain.ScoreOutcome {
		panic("model exploded")
	}}
	g := NewGuard(s, GuardOptions{})

	var out domain.ScoreOutcome
	require.NotPanics(t, func() { out = g.Score(context.Background(), "text") })
	assert.False(t, out.Available)
	assert.Contains(t, out.Reason, "model exploded")
}

func TestGuardTimeout(t *testing.T) {
	t.Parallel()

	s := &stubScorer{configured: true, fn: func(ctx context.Context, _ string) domain.ScoreOutcome {
		<-ctx.Done()
		return domain.Unavailable(ctx.Err().Error())
	}}
	g := NewGuard(s, GuardOptions{Timeout: 20 * time.Millisecond})

	out := g.Score(context.Background(), "text")
	assert.False(t, out.Available)
	assert.Contains(t, out.Reason, "timeout")
}

func TestGuardOpensBreaker(t *testing.T) {
	t.Parallel()

	s := &stubScorer{configured: true, fn: func(context.Context, string) domain.ScoreOutcome {
		return domain.Unavailable("upstream 503")
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewScorerMetrics(reg)
	g := NewGuard(s, GuardOptions{BreakerFailures: 2, BreakerCooldown: time.Hour, Metrics: m})

	assert.Equal(t, "upstream 503", g.Score(context.Background(), "a").Reason)
	assert.Equal(t, "upstream 503", g.Score(context.Background(), "b").Reason)
	assert.Equal(t, gobreaker.StateOpen, g.State())

	out := g.Score(context.Background(), "c")
	assert.False(t, out.Available)
	assert.Equal(t, "circuit breaker open", out.Reason)
	assert.Equal(t, int32(2), s.calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("stub", "circuit_open")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calls.WithLabelValues("stub", "unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("stub")))
}

func TestGuardRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	s := okScorer()
	g := NewGuard(s, GuardOptions{RatePerSecond: 0.001, Burst: 1})

	require.True(t, g.Score(context.Background(), "first").Available)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	out := g.Score(ctx, "second")
	assert.False(t, out.Available)
	assert.Contains(t, out.Reason, "rate limiter")
	assert.Equal(t, int32(1), s.calls.Load())
}
