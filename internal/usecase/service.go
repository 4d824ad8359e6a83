// Package usecase holds the ingestion, trend and scheduling workflows.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// BatchRequest selects what one batch ingests. A zero Limit means the ceiling.
type BatchRequest struct {
	Tickers []string
	Topics  []string
	Limit   int
	Manual  bool
}

// ServiceDeps wires the components behind Service.
type ServiceDeps struct {
	Feed         ports.FeedProvider
	Store        ports.ArticleStore
	Ingestor     *Ingestor
	Orchestrator *Orchestrator
	Trends       *TrendAggregator
	Guard        *ScheduleGuard
	Primary      ports.Scorer
	Concurrency  int
	Clock        clockwork.Clock
	Logger       *slog.Logger
}

// Service is the entry point exposed to the CLI and the scheduler.
type Service struct {
	feed         ports.FeedProvider
	store        ports.ArticleStore
	ingestor     *Ingestor
	orchestrator *Orchestrator
	trends       *TrendAggregator
	guard        *ScheduleGuard
	primary      ports.Scorer
	concurrency  int
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewService constructs the service.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		feed:         deps.Feed,
		store:        deps.Store,
		ingestor:     deps.Ingestor,
		orchestrator: deps.Orchestrator,
		trends:       deps.Trends,
		guard:        deps.Guard,
		primary:      deps.Primary,
		concurrency:  deps.Concurrency,
		clock:        clock,
		logger:       logger,
	}
}

// IngestBatch fetches and ingests one batch. It returns an error only for a
// negative limit, a non-positive concurrency or a guard rejection.
func (s *Service) IngestBatch(ctx context.Context, req BatchRequest) (domain.BatchReport, error) {
	if req.Limit < 0 || s.concurrency < 1 {
		return domain.BatchReport{}, domain.ErrInvalidLimit
	}

	adm, err := s.guard.Admit(ctx, Trigger{Manual: req.Manual, Requested: req.Limit})
	if err != nil {
		return domain.BatchReport{}, err
	}
	defer adm.Release()

	items := s.fetch(ctx, req, adm.Limit)
	return s.orchestrator.Run(ctx, items, s.concurrency), nil
}

// fetch queries the feed and trims the result to limit. Provider failures
// become an empty batch.
func (s *Service) fetch(ctx context.Context, req BatchRequest, limit int) []domain.NewsItem {
	if s.feed == nil || limit <= 0 {
		return nil
	}
	items, err := s.feed.Fetch(ctx, domain.FeedQuery{Tickers: req.Tickers, Topics: req.Topics, Limit: limit})
	if err != nil {
		s.logger.Warn("feed unavailable", "provider", s.feed.Name(), "error", err)
		return nil
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// GetTrends summarises the last windowHours of processed articles.
func (s *Service) GetTrends(ctx context.Context, ticker string, windowHours int) (domain.TrendReport, error) {
	if windowHours < 1 {
		return domain.TrendReport{}, domain.ErrInvalidWindow
	}
	end := s.clock.Now().UTC()
	start := end.Add(-time.Duration(windowHours) * time.Hour)
	return s.trends.Trends(ctx, start, end, ticker)
}

// DefaultRecentLimit caps RecentArticles when the caller passes no limit.
const DefaultRecentLimit = 50

// RecentArticles lists processed articles published in the last windowHours,
// newest first. An empty ticker matches every ticker; limit 0 means
// DefaultRecentLimit.
func (s *Service) RecentArticles(ctx context.Context, ticker string, windowHours, limit int) ([]domain.StoredArticle, error) {
	if windowHours < 1 {
		return nil, domain.ErrInvalidWindow
	}
	if limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultRecentLimit
	}

	end := s.clock.Now().UTC()
	articles, err := s.store.QueryWindow(ctx, ports.WindowQuery{
		Start:  end.Add(-time.Duration(windowHours) * time.Hour),
		End:    end,
		Ticker: ticker,
	})
	if err != nil {
		return nil, fmt.Errorf("recent articles: %w", err)
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// GetStats reports ingestion health over the last windowHours.
func (s *Service) GetStats(ctx context.Context, windowHours int) (domain.Stats, error) {
	if windowHours < 1 {
		return domain.Stats{}, domain.ErrInvalidWindow
	}
	since := s.clock.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	stats, err := s.store.Stats(ctx, since)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	stats.WindowHours = windowHours
	return stats, nil
}

// Reprocess re-scores one stored article.
func (s *Service) Reprocess(ctx context.Context, id uuid.UUID) (domain.Outcome, error) {
	return s.ingestor.Reprocess(ctx, id)
}

// Ready checks the store and the primary scorer.
func (s *Service) Ready(ctx context.Context) error {
	var errs []error
	if err := s.store.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if s.primary == nil || !s.primary.Configured() {
		errs = append(errs, errors.New("primary scorer is not configured"))
	}
	return errors.Join(errs...)
}
