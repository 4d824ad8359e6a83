package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"NewsSentiment/internal/domain"
)

// FeedProvider pulls fresh news items from an upstream provider.
type FeedProvider interface {
	Name() string
	Fetch(ctx context.Context, query domain.FeedQuery) ([]domain.NewsItem, error)
}

// Scorer maps text to a sentiment score. Failures are reported as an
// unavailable outcome, never as an error.
type Scorer interface {
	Name() string
	// Configured reports whether credentials and endpoint are present.
	Configured() bool
	Score(ctx context.Context, text string) domain.ScoreOutcome
}

// WindowQuery selects processed articles published in [Start, End).
type WindowQuery struct {
	Start  time.Time
	End    time.Time
	Ticker string
}

// ArticleStore persists articles keyed by canonical URL.
type ArticleStore interface {
	// FindByURL returns nil without error when no article has the URL.
	FindByURL(ctx context.Context, url string) (*domain.StoredArticle, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.StoredArticle, error)
	// UpsertProcessed inserts the article or completes an unprocessed row with the
	// same URL, in one atomic step, and returns the id of the stored row. It
	// returns domain.ErrAlreadyProcessed when a processed row already holds the URL.
	UpsertProcessed(ctx context.Context, article domain.StoredArticle) (id uuid.UUID, inserted bool, err error)
	RewriteVerdict(ctx context.Context, id uuid.UUID, verdict domain.Verdict) error
	QueryWindow(ctx context.Context, query WindowQuery) ([]domain.StoredArticle, error)
	Stats(ctx context.Context, since time.Time) (domain.Stats, error)
	Ping(ctx context.Context) error
}

// RunLock is a cross-process mutual exclusion for trigger runs.
type RunLock interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// RetryQueue holds failed items until their backoff elapses.
type RetryQueue interface {
	Enqueue(ctx context.Context, envelope domain.RetryEnvelope) error
	// Due removes and returns up to max envelopes whose NotBefore is at or before now.
	Due(ctx context.Context, now time.Time, max int) ([]domain.RetryEnvelope, error)
	DeadLetter(ctx context.Context, envelope domain.RetryEnvelope) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
