// Package scoring wraps sentiment scorers with the protections every external
// model call needs: text budget, timeout, rate limit, circuit breaker and
// panic containment.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
	"NewsSentiment/internal/ports"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

var errUnavailable = errors.New("scorer unavailable")

// GuardOptions tunes a Guard. Zero values fall back to defaults; a zero
// RatePerSecond disables rate limiting.
type GuardOptions struct {
	Timeout         time.Duration
	MaxTextLength   int
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Metrics         *metrics.ScorerMetrics
	Logger          *slog.Logger
}

// Guard decorates a ports.Scorer. It never returns an error and never panics.
type Guard struct {
	next      ports.Scorer
	timeout   time.Duration
	maxLength int
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.ScorerMetrics
	logger    *slog.Logger
}

var _ ports.Scorer = (*Guard)(nil)

// NewGuard wraps next.
func NewGuard(next ports.Scorer, opts GuardOptions) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = defaultBreakerCooldown
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scorer", "scorer", next.Name())

	g := &Guard{
		next:      next,
		timeout:   opts.Timeout,
		maxLength: opts.MaxTextLength,
		metrics:   opts.Metrics,
		logger:    logger,
	}

	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	failures := opts.BreakerFailures
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
			g.metrics.SetBreakerState(name, breakerStateValue(to))
		},
	})

	return g
}

// Name delegates to the wrapped scorer.
func (g *Guard) Name() string { return g.next.Name() }

// Configured delegates to the wrapped scorer.
func (g *Guard) Configured() bool { return g.next.Configured() }

// Score runs the wrapped scorer under the guard's protections.
func (g *Guard) Score(ctx context.Context, text string) (out domain.ScoreOutcome) {
	start := time.Now()
	result := "ok"

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("scorer panicked", "panic", r)
			out = domain.Unavailable(fmt.Sprintf("scorer panic: %v", r))
			result = "panic"
		}
		g.metrics.ObserveCall(g.next.Name(), result, time.Since(start))
	}()

	if !g.next.Configured() {
		result = "not_configured"
		return domain.Unavailable("scorer not configured")
	}

	text = Truncate(text, g.maxLength)
	if text == "" {
		result = "empty"
		return domain.Unavailable("empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			result = "rate_limited"
			return domain.Unavailable(fmt.Sprintf("rate limiter: %v", err))
		}
	}

	v, err := g.breaker.Execute(func() (interface{}, error) {
		o := g.next.Score(ctx, text)
		if !o.Available {
			return o, errUnavailable
		}
		return o, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "circuit_open"
		return domain.Unavailable("circuit breaker open")
	case err != nil:
		o, _ := v.(domain.ScoreOutcome)
		result = "unavailable"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = "timeout"
			return domain.Unavailable(fmt.Sprintf("timeout after %s", g.timeout))
		}
		g.logger.Debug("scorer unavailable", "reason", o.Reason)
		return o
	}

	o := v.(domain.ScoreOutcome)
	if o.Result.ProcessingTime == 0 {
		o.Result.ProcessingTime = time.Since(start)
	}
	return o
}

// State exposes the breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
