package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
	"NewsSentiment/internal/ports"
)

const (
	// DefaultMaxItems is the per-trigger ceiling when none is configured.
	DefaultMaxItems = 100

	defaultLockKey = "ingest"
	defaultLockTTL = 10 * time.Minute
)

// Trigger describes one request to run a batch.
type Trigger struct {
	Manual    bool
	Requested int
	// At is the scheduled tick time; zero means now.
	At time.Time
}

// Admission grants one batch run. Release must be called when the run ends.
type Admission struct {
	Limit   int
	release func()
	once    sync.Once
}

// Release frees the in-flight slot and the distributed lock. It is idempotent.
func (a *Admission) Release() {
	if a == nil || a.release == nil {
		return
	}
	a.once.Do(a.release)
}

// GuardOptions tunes a ScheduleGuard. Lock is optional.
type GuardOptions struct {
	MinInterval time.Duration
	MaxItems    int
	Lock        ports.RunLock
	LockKey     string
	LockTTL     time.Duration
	Clock       clockwork.Clock
	Metrics     *metrics.GuardMetrics
	Logger      *slog.Logger
}

// ScheduleGuard admits batch triggers: it enforces the interval floor between
// automatic runs, the item ceiling on every run, and no overlapping runs.
type ScheduleGuard struct {
	minInterval time.Duration
	maxItems    int
	lock        ports.RunLock
	lockKey     string
	lockTTL     time.Duration
	clock       clockwork.Clock
	metrics     *metrics.GuardMetrics
	logger      *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
}

// NewScheduleGuard builds a guard. Intervals below the floor are raised to it.
func NewScheduleGuard(opts GuardOptions) *ScheduleGuard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MinInterval < config.MinScheduleInterval {
		if opts.MinInterval > 0 {
			logger.Warn("schedule interval below floor, clamping",
				"requested", opts.MinInterval, "floor", config.MinScheduleInterval)
		}
		opts.MinInterval = config.MinScheduleInterval
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.LockKey == "" {
		opts.LockKey = defaultLockKey
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &ScheduleGuard{
		minInterval: opts.MinInterval,
		maxItems:    opts.MaxItems,
		lock:        opts.Lock,
		lockKey:     opts.LockKey,
		lockTTL:     opts.LockTTL,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// MinInterval returns the effective interval floor.
func (g *ScheduleGuard) MinInterval() time.Duration { return g.minInterval }

// MaxItems returns the per-trigger item ceiling.
func (g *ScheduleGuard) MaxItems() int { return g.maxItems }

// Admit decides whether a trigger may run. Rejections return domain.ErrTooSoon
// or domain.ErrInFlight.
func (g *ScheduleGuard) Admit(ctx context.Context, t Trigger) (*Admission, error) {
	now := t.At
	if now.IsZero() {
		now = g.clock.Now()
	}

	// mu is held from the interval check through the lastRun write.
	g.mu.Lock()
	defer g.mu.Unlock()

	if !t.Manual && !g.lastRun.IsZero() && now.Sub(g.lastRun) < g.minInterval {
		g.metrics.Rejected("too_soon")
		return nil, fmt.Errorf("%w: last run %s ago, floor %s", domain.ErrTooSoon, now.Sub(g.lastRun), g.minInterval)
	}

	if !g.inFlight.CompareAndSwap(false, true) {
		g.metrics.Rejected("in_flight")
		return nil, domain.ErrInFlight
	}

	var releaseLock func(context.Context) error
	if g.lock != nil {
		release, acquired, err := g.lock.TryAcquire(ctx, g.lockKey, g.lockTTL)
		if err != nil {
			g.inFlight.Store(false)
			g.metrics.Rejected("lock_error")
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			g.inFlight.Store(false)
			g.metrics.Rejected("in_flight")
			return nil, fmt.Errorf("%w: held by another instance", domain.ErrInFlight)
		}
		releaseLock = release
	}

	trigger := "automatic"
	if t.Manual {
		trigger = "manual"
	} else {
		g.lastRun = now
	}
	g.metrics.Admitted(trigger)

	limit := t.Requested
	if limit <= 0 || limit > g.maxItems {
		limit = g.maxItems
	}

	return &Admission{
		Limit: limit,
		release: func() {
			if releaseLock != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseLock(ctx); err != nil {
					g.logger.Warn("release run lock", "error", err)
				}
			}
			g.inFlight.Store(false)
		},
	}, nil
}
