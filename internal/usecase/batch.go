package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
)

// ItemIngester ingests one item and always returns a terminal outcome.
type ItemIngester interface {
	Ingest(ctx context.Context, item domain.NewsItem) domain.Outcome
}

// Orchestrator runs ingests for a batch with bounded parallelism.
type Orchestrator struct {
	ingester ItemIngester
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger
}

// NewOrchestrator wires the per-item ingester.
func NewOrchestrator(ingester ItemIngester, m *metrics.PipelineMetrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{ingester: ingester, metrics: m, logger: logger}
}

// Run ingests every item with at most limit calls in flight. The report holds
// exactly one outcome per item, in input order. Callers validate limit; values
// below one run sequentially.
func (o *Orchestrator) Run(ctx context.Context, items []domain.NewsItem, limit int) domain.BatchReport {
	if limit < 1 {
		limit = 1
	}
	o.metrics.ObserveBatch(len(items))

	outcomes := make([]domain.Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for idx, item := range items {
		if ctx.Err() != nil {
			outcomes[idx] = domain.Failed(item.URL, "cancelled")
			continue
		}
		g.Go(func() error {
			outcomes[idx] = o.ingestOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.BatchReport{Outcomes: make([]domain.Outcome, 0, len(items))}
	for _, out := range outcomes {
		report.Add(out)
	}

	o.logger.Info("batch finished",
		"items", len(items),
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report
}

func (o *Orchestrator) ingestOne(ctx context.Context, item domain.NewsItem) (out domain.Outcome) {
	if ctx.Err() != nil {
		return domain.Failed(item.URL, "cancelled")
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("ingest panicked", "url", item.URL, "panic", r)
			out = domain.Failed(item.URL, "panic: %v", r)
		}
	}()

	out = o.ingester.Ingest(ctx, item)
	if out.Kind == "" {
		out = domain.Failed(item.URL, "ingester returned no outcome")
	}
	return out
}
