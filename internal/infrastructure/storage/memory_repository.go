package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// MemoryRepository is an in-process ArticleStore with the same uniqueness and
// conditional-upsert rules as the Postgres schema. It backs tests and
// database-less runs.
type MemoryRepository struct {
	mu    sync.Mutex
	clock clockwork.Clock
	byID  map[uuid.UUID]*domain.StoredArticle
	byURL map[string]uuid.UUID
}

var _ ports.ArticleStore = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty store. A nil clock means the real clock.
func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepository{
		clock: clock,
		byID:  make(map[uuid.UUID]*domain.StoredArticle),
		byURL: make(map[string]uuid.UUID),
	}
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(context.Context) error { return nil }

// Seed stores an article as-is, typically an unprocessed row left by an
// earlier system. It fails if the URL is taken.
func (r *MemoryRepository) Seed(article domain.StoredArticle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byURL[article.URL]; ok {
		return fmt.Errorf("seed %s: url already stored", article.URL)
	}
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	now := r.clock.Now()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now

	stored := article
	r.byID[article.ID] = &stored
	r.byURL[article.URL] = article.ID
	return nil
}

// FindByURL returns a copy of the stored article or nil.
func (r *MemoryRepository) FindByURL(_ context.Context, url string) (*domain.StoredArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byURL[url]
	if !ok {
		return nil, nil
	}
	a := *r.byID[id]
	return &a, nil
}

// FindByID returns domain.ErrArticleNotFound for unknown ids.
func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (domain.StoredArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.StoredArticle{}, fmt.Errorf("article %s: %w", id, domain.ErrArticleNotFound)
	}
	return *a, nil
}

// UpsertProcessed mirrors INSERT ... ON CONFLICT (url) DO UPDATE ... WHERE NOT is_processed.
func (r *MemoryRepository) UpsertProcessed(_ context.Context, article domain.StoredArticle) (uuid.UUID, bool, error) {
	if article.Verdict == nil {
		return uuid.Nil, false, fmt.Errorf("upsert %s: verdict is required", article.URL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	if id, ok := r.byURL[article.URL]; ok {
		existing := r.byID[id]
		if existing.IsProcessed {
			return uuid.Nil, false, fmt.Errorf("upsert %s: %w", article.URL, domain.ErrAlreadyProcessed)
		}

		raw := article.Raw
		if len(raw) == 0 {
			raw = existing.Raw
		}
		updated := article
		updated.ID = existing.ID
		updated.Raw = raw
		updated.IsProcessed = true
		updated.IsArchived = existing.IsArchived
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = now
		r.byID[id] = &updated
		return id, false, nil
	}

	stored := article
	stored.IsProcessed = true
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.byID[stored.ID] = &stored
	r.byURL[stored.URL] = stored.ID
	return stored.ID, true, nil
}

// RewriteVerdict replaces the verdict of an existing article.
func (r *MemoryRepository) RewriteVerdict(_ context.Context, id uuid.UUID, verdict domain.Verdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, domain.ErrArticleNotFound)
	}
	v := verdict
	a.Verdict = &v
	a.IsProcessed = true
	a.UpdatedAt = r.clock.Now()
	return nil
}

// QueryWindow lists processed articles in [Start, End), newest first.
func (r *MemoryRepository) QueryWindow(_ context.Context, q ports.WindowQuery) ([]domain.StoredArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.StoredArticle
	for _, a := range r.byID {
		if !a.IsProcessed || a.PublishedAt.Before(q.Start) || !a.PublishedAt.Before(q.End) {
			continue
		}
		if q.Ticker != "" && a.Ticker != q.Ticker {
			continue
		}
		out = append(out, *a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Stats summarises articles published since the given instant.
func (r *MemoryRepository) Stats(_ context.Context, since time.Time) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		stats   domain.Stats
		sum     float64
		tickers = map[string]int{}
	)
	for _, a := range r.byID {
		if a.PublishedAt.Before(since) {
			continue
		}
		stats.TotalArticles++
		if a.IsProcessed && a.Verdict != nil {
			stats.ProcessedArticles++
			sum += a.Verdict.Score
		}
		if a.Ticker != "" {
			tickers[a.Ticker]++
		}
	}

	if stats.ProcessedArticles > 0 {
		avg := sum / float64(stats.ProcessedArticles)
		stats.AverageScore = &avg
	}
	if stats.TotalArticles > 0 {
		stats.ProcessingRate = float64(stats.ProcessedArticles) / float64(stats.TotalArticles) * 100
	}

	stats.TopTickers = make([]domain.TickerCount, 0, len(tickers))
	for t, n := range tickers {
		stats.TopTickers = append(stats.TopTickers, domain.TickerCount{Ticker: t, Count: n})
	}
	sort.Slice(stats.TopTickers, func(i, j int) bool {
		if stats.TopTickers[i].Count != stats.TopTickers[j].Count {
			return stats.TopTickers[i].Count > stats.TopTickers[j].Count
		}
		return stats.TopTickers[i].Ticker < stats.TopTickers[j].Ticker
	})
	if len(stats.TopTickers) > topTickersLimit {
		stats.TopTickers = stats.TopTickers[:topTickersLimit]
	}

	return stats, nil
}
