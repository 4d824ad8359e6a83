package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/metrics"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/retry"
)

// SchedulerDeps wires the automatic trigger path.
type SchedulerDeps struct {
	Driver   ports.Scheduler
	Service  *Service
	Retries  ports.RetryQueue
	Policy   retry.Policy
	Notifier ports.Notifier
	Tickers  []string
	Topics   []string
	Metrics  *metrics.PipelineMetrics
	Logger   *slog.Logger
}

// Scheduler runs guarded automatic batches on the driver's ticks.
type Scheduler struct {
	driver   ports.Scheduler
	service  *Service
	retries  ports.RetryQueue
	policy   retry.Policy
	notifier ports.Notifier
	tickers  []string
	topics   []string
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		driver:   deps.Driver,
		service:  deps.Service,
		retries:  deps.Retries,
		policy:   deps.Policy,
		notifier: deps.Notifier,
		tickers:  deps.Tickers,
		topics:   deps.Topics,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Start registers the scheduled run with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.service == nil {
		return nil
	}

	job := func(tick time.Time) {
		report, err := s.RunOnce(ctx, tick)
		switch {
		case errors.Is(err, domain.ErrTooSoon), errors.Is(err, domain.ErrInFlight):
			s.logger.Info("scheduled run rejected", "reason", err)
		case err != nil:
			s.logger.Error("scheduled run failed", "error", err)
		default:
			s.logger.Info("scheduled run done",
				"created", report.Created, "updated", report.Updated,
				"skipped", report.Skipped, "failed", report.Failed)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// RunOnce performs one automatic batch: due retries first, then fresh feed
// items, all within the guard ceiling. Failed items are re-enqueued with
// backoff or dead-lettered.
func (s *Scheduler) RunOnce(ctx context.Context, tick time.Time) (domain.BatchReport, error) {
	svc := s.service
	if svc.concurrency < 1 {
		return domain.BatchReport{}, domain.ErrInvalidLimit
	}

	adm, err := svc.guard.Admit(ctx, Trigger{At: tick})
	if err != nil {
		return domain.BatchReport{}, err
	}
	defer adm.Release()

	envelopes := s.dueRetries(ctx, tick, adm.Limit)
	items := make([]domain.NewsItem, 0, adm.Limit)
	for _, env := range envelopes {
		items = append(items, env.Item)
	}
	req := BatchRequest{Tickers: s.tickers, Topics: s.topics}
	items = append(items, svc.fetch(ctx, req, adm.Limit-len(envelopes))...)

	report := svc.orchestrator.Run(ctx, items, svc.concurrency)

	for idx, out := range report.Outcomes {
		if out.Kind != domain.OutcomeFailed {
			continue
		}
		env := domain.RetryEnvelope{Item: items[idx]}
		if idx < len(envelopes) {
			env = envelopes[idx]
		}
		s.reschedule(ctx, env, out.Reason, tick)
	}

	if report.Created > 0 && s.notifier != nil {
		if err := s.notifier.PublishDigest(ctx, buildDigestMessage(items, report)); err != nil {
			s.logger.Warn("publish digest", "error", err)
		}
	}
	return report, nil
}

func (s *Scheduler) dueRetries(ctx context.Context, now time.Time, max int) []domain.RetryEnvelope {
	if s.retries == nil || max <= 0 {
		return nil
	}
	envelopes, err := s.retries.Due(ctx, now, max)
	if err != nil {
		s.logger.Warn("drain retry queue", "error", err)
		return nil
	}
	for range envelopes {
		s.metrics.ObserveRetry("drained")
	}
	return envelopes
}

func (s *Scheduler) reschedule(ctx context.Context, env domain.RetryEnvelope, reason string, now time.Time) {
	if s.retries == nil {
		return
	}

	next, exhausted := s.policy.Next(env, reason, now)
	if exhausted {
		if err := s.retries.DeadLetter(ctx, next); err != nil {
			s.logger.Warn("dead-letter item", "url", env.Item.URL, "error", err)
			return
		}
		s.metrics.ObserveRetry("dead_lettered")
		s.logger.Warn("item dead-lettered", "url", env.Item.URL, "attempts", next.Attempt, "reason", reason)
		return
	}

	if err := s.retries.Enqueue(ctx, next); err != nil {
		s.logger.Warn("enqueue retry", "url", env.Item.URL, "error", err)
		return
	}
	action := "enqueued"
	if env.Attempt > 0 {
		action = "requeued"
	}
	s.metrics.ObserveRetry(action)
}

func buildDigestMessage(items []domain.NewsItem, report domain.BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*News sentiment run*: %d created, %d updated, %d skipped, %d failed\n\n",
		report.Created, report.Updated, report.Skipped, report.Failed)

	for idx, out := range report.Outcomes {
		if out.Kind != domain.OutcomeCreated || out.Verdict == nil {
			continue
		}
		title := items[idx].Title
		if title == "" {
			title = out.URL
		}
		fmt.Fprintf(&b, "- %s\nScore: %.2f (%s)\n%s\n%s\n\n",
			title,
			out.Verdict.Score,
			out.Verdict.Label,
			out.Verdict.Interpretation,
			out.URL)
	}

	return b.String()
}
