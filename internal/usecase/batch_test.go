package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSentiment/internal/domain"
)

type funcIngester func(ctx context.Context, item domain.NewsItem) domain.Outcome

func (f funcIngester) Ingest(ctx context.Context, item domain.NewsItem) domain.Outcome {
	return f(ctx, item)
}

func TestOrchestrator_IsolatesPanickingItem(t *testing.T) {
	f := newFixture()
	items := newsItems(5)
	panicky := funcIngester(func(ctx context.Context, item domain.NewsItem) domain.Outcome {
		if item.URL == items[2].URL {
			panic("scorer exploded")
		}
		return f.ingestor.Ingest(ctx, item)
	})

	report := NewOrchestrator(panicky, nil, nil).Run(context.Background(), items, 2)

	require.Len(t, report.Outcomes, 5)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, domain.OutcomeFailed, report.Outcomes[2].Kind)
	assert.Contains(t, report.Outcomes[2].Reason, "scorer exploded")
	for i, out := range report.Outcomes {
		assert.Equal(t, items[i].URL, out.URL)
	}
}

func TestOrchestrator_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := funcIngester(func(_ context.Context, item domain.NewsItem) domain.Outcome {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return domain.Outcome{Kind: domain.OutcomeCreated, URL: item.URL}
	})

	report := NewOrchestrator(slow, nil, nil).Run(context.Background(), newsItems(20), 3)
	assert.Equal(t, 20, report.Created)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	counting := funcIngester(func(_ context.Context, item domain.NewsItem) domain.Outcome {
		calls.Add(1)
		return domain.Outcome{Kind: domain.OutcomeCreated, URL: item.URL}
	})

	report := NewOrchestrator(counting, nil, nil).Run(ctx, newsItems(4), 2)
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, 4, report.Failed)
	assert.Zero(t, calls.Load())
	assert.Equal(t, "cancelled", report.Outcomes[0].Reason)
}

func TestOrchestrator_EmptyBatch(t *testing.T) {
	report := NewOrchestrator(funcIngester(nil), nil, nil).Run(context.Background(), nil, 4)
	assert.Empty(t, report.Outcomes)
	assert.Zero(t, report.Created+report.Skipped+report.Failed)
}

func TestOrchestrator_DuplicatesInBatch(t *testing.T) {
	f := newFixture()
	items := append(newsItems(3), newsItem(1), newsItem(2))

	report := NewOrchestrator(f.ingestor, nil, nil).Run(context.Background(), items, 5)
	require.Len(t, report.Outcomes, 5)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 2, report.Skipped)
}
