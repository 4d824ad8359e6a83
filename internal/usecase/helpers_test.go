package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/infrastructure/queue"
	"NewsSentiment/internal/infrastructure/storage"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeScorer struct {
	name       string
	result     domain.ScoreResult
	reason     string
	configured bool
	calls      atomic.Int32
}

func newFakeScorer(name string, score, confidence float64) *fakeScorer {
	return &fakeScorer{
		name:       name,
		configured: true,
		result:     domain.ScoreResult{Score: score, Confidence: confidence, Model: name},
	}
}

func unavailableScorer(name, reason string) *fakeScorer {
	return &fakeScorer{name: name, reason: reason, configured: true}
}

func (f *fakeScorer) Name() string     { return f.name }
func (f *fakeScorer) Configured() bool { return f.configured }

func (f *fakeScorer) Score(context.Context, string) domain.ScoreOutcome {
	f.calls.Add(1)
	if f.reason != "" {
		return domain.Unavailable(f.reason)
	}
	return domain.Scored(f.result)
}

type stubFeed struct {
	items []domain.NewsItem
	err   error
	mu    sync.Mutex
	last  domain.FeedQuery
}

func (s *stubFeed) Name() string { return "stub" }

func (s *stubFeed) Fetch(_ context.Context, q domain.FeedQuery) ([]domain.NewsItem, error) {
	s.mu.Lock()
	s.last = q
	s.mu.Unlock()
	return s.items, s.err
}

func newsItem(n int) domain.NewsItem {
	return domain.NewsItem{
		URL:         fmt.Sprintf("https://news.example.com/articles/%d", n),
		Title:       fmt.Sprintf("Headline %d", n),
		Body:        fmt.Sprintf("Company %d reports record quarterly revenue", n),
		Ticker:      "AAPL",
		PublishedAt: testNow.Add(-time.Duration(n) * time.Minute),
	}
}

func newsItems(n int) []domain.NewsItem {
	items := make([]domain.NewsItem, n)
	for i := range items {
		items[i] = newsItem(i + 1)
	}
	return items
}

type fixture struct {
	clock     *clockwork.FakeClock
	store     *storage.MemoryRepository
	primary   *fakeScorer
	secondary *fakeScorer
	ingestor  *Ingestor
	feed      *stubFeed
	guard     *ScheduleGuard
	service   *Service
	retries   *queue.MemoryRetryQueue
}

func newFixture() *fixture {
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(testNow),
		primary:   newFakeScorer("classifier", 0.5, 0.8),
		secondary: newFakeScorer("openai", 0.7, 0.9),
		feed:      &stubFeed{},
		retries:   queue.NewMemoryRetryQueue(),
	}
	f.store = storage.NewMemoryRepository(f.clock)
	f.ingestor = NewIngestor(IngestorDeps{
		Store:     f.store,
		Primary:   f.primary,
		Secondary: f.secondary,
		Clock:     f.clock,
	})
	f.guard = NewScheduleGuard(GuardOptions{Clock: f.clock})
	f.service = NewService(ServiceDeps{
		Feed:         f.feed,
		Store:        f.store,
		Ingestor:     f.ingestor,
		Orchestrator: NewOrchestrator(f.ingestor, nil, nil),
		Trends:       NewTrendAggregator(f.store),
		Guard:        f.guard,
		Primary:      f.primary,
		Concurrency:  4,
		Clock:        f.clock,
	})
	return f
}
