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
	"NewsSentiment/internal/metrics"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/sentiment"
)

// IngestorDeps wires the driven adapters used to ingest one item.
type IngestorDeps struct {
	Store     ports.ArticleStore
	Primary   ports.Scorer
	Secondary ports.Scorer
	Metrics   *metrics.PipelineMetrics
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

// Ingestor deduplicates, scores and persists single news items.
type Ingestor struct {
	store     ports.ArticleStore
	primary   ports.Scorer
	secondary ports.Scorer
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
	clock     clockwork.Clock
}

// NewIngestor constructs the ingestion component.
func NewIngestor(deps IngestorDeps) *Ingestor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ingestor{
		store:     deps.Store,
		primary:   deps.Primary,
		secondary: deps.Secondary,
		metrics:   deps.Metrics,
		logger:    logger,
		clock:     clock,
	}
}

// Ingest runs one item through dedup, scoring, fusion and persistence. It
// always returns a terminal outcome.
func (i *Ingestor) Ingest(ctx context.Context, item domain.NewsItem) (out domain.Outcome) {
	start := i.clock.Now()
	defer func() { i.observe(out, i.clock.Since(start)) }()

	canonical, err := domain.CanonicalURL(item.URL)
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeSkippedInvalid, URL: item.URL, Reason: err.Error()}
	}
	item.URL = canonical
	if item.PublishedAt.IsZero() {
		return domain.Outcome{Kind: domain.OutcomeSkippedInvalid, URL: canonical, Reason: "missing publish time"}
	}

	existing, err := i.store.FindByURL(ctx, canonical)
	if err != nil {
		return domain.Failed(canonical, "lookup: %v", err)
	}
	if existing != nil && existing.IsProcessed {
		return domain.Outcome{Kind: domain.OutcomeSkippedAlreadyProcessed, URL: canonical, ArticleID: existing.ID}
	}

	id := uuid.New()
	if existing != nil {
		id = existing.ID
	}

	text := item.ScoringText()
	if text == "" {
		return domain.Outcome{Kind: domain.OutcomeSkippedNoContent, URL: canonical, Reason: "no title or body"}
	}

	verdict, reason, ok := i.score(ctx, text)
	if !ok {
		return domain.Failed(canonical, "primary scorer unavailable: %s", reason)
	}

	article := domain.NewStoredArticle(id, item)
	article.Verdict = &verdict

	storedID, inserted, err := i.store.UpsertProcessed(ctx, article)
	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return domain.Outcome{Kind: domain.OutcomeSkippedAlreadyProcessed, URL: canonical, Reason: "processed concurrently"}
	case err != nil:
		return domain.Failed(canonical, "persist: %v", err)
	}

	kind := domain.OutcomeUpdatedExistingUnprocessed
	if inserted {
		kind = domain.OutcomeCreated
	}
	return domain.Outcome{Kind: kind, URL: canonical, ArticleID: storedID, Verdict: &verdict}
}

// Reprocess re-scores a stored article and overwrites its verdict.
func (i *Ingestor) Reprocess(ctx context.Context, id uuid.UUID) (out domain.Outcome, err error) {
	start := i.clock.Now()
	article, err := i.store.FindByID(ctx, id)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("reprocess %s: %w", id, err)
	}
	defer func() {
		if err == nil {
			i.observe(out, i.clock.Since(start))
		}
	}()

	text := article.Item().ScoringText()
	if text == "" {
		return domain.Outcome{Kind: domain.OutcomeSkippedNoContent, URL: article.URL, ArticleID: id, Reason: "no title or body"}, nil
	}

	verdict, reason, ok := i.score(ctx, text)
	if !ok {
		out = domain.Failed(article.URL, "primary scorer unavailable: %s", reason)
		out.ArticleID = id
		return out, nil
	}

	if err := i.store.RewriteVerdict(ctx, id, verdict); err != nil {
		return domain.Outcome{}, fmt.Errorf("reprocess %s: %w", id, err)
	}
	return domain.Outcome{Kind: domain.OutcomeReprocessed, URL: article.URL, ArticleID: id, Verdict: &verdict}, nil
}

// score calls the primary then the secondary scorer and fuses the results.
// ok is false when the primary is unavailable.
func (i *Ingestor) score(ctx context.Context, text string) (domain.Verdict, string, bool) {
	if i.primary == nil {
		return domain.Verdict{}, "primary scorer not configured", false
	}
	primary := i.primary.Score(ctx, text)
	if !primary.Available {
		return domain.Verdict{}, primary.Reason, false
	}

	secondary := domain.Unavailable("secondary scorer not configured")
	if i.secondary != nil {
		secondary = i.secondary.Score(ctx, text)
	}
	if !secondary.Available {
		i.logger.Debug("secondary scorer unavailable, using primary only", "reason", secondary.Reason)
	}

	return sentiment.Fuse(primary.Result, secondary), "", true
}

func (i *Ingestor) observe(out domain.Outcome, elapsed time.Duration) {
	i.metrics.ObserveIngest(string(out.Kind), elapsed)

	attrs := []any{"kind", out.Kind, "url", out.URL, "duration", elapsed}
	if out.ArticleID != uuid.Nil {
		attrs = append(attrs, "article_id", out.ArticleID)
	}
	if out.Verdict != nil {
		attrs = append(attrs, "score", out.Verdict.Score, "label", out.Verdict.Label)
	}
	if out.Reason != "" {
		attrs = append(attrs, "reason", out.Reason)
	}

	switch out.Kind {
	case domain.OutcomeFailed:
		i.logger.Warn("ingest failed", attrs...)
	case domain.OutcomeSkippedInvalid:
		i.logger.Info("ingest skipped invalid item", attrs...)
	default:
		i.logger.Debug("ingest done", attrs...)
	}
}
