package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// MultiSource fans a query out to every registered provider.
type MultiSource struct {
	registry *Registry
	logger   *slog.Logger
}

var _ ports.FeedProvider = (*MultiSource)(nil)

// NewMultiSource wires the registry. A nil logger disables debug output.
func NewMultiSource(reg *Registry, log *slog.Logger) *MultiSource {
	return &MultiSource{registry: reg, logger: log}
}

// Name identifies the aggregate source in logs.
func (m *MultiSource) Name() string {
	return "multi"
}

// Fetch queries providers in name order. A failing provider is logged and
// skipped; an error is returned only when every provider failed.
func (m *MultiSource) Fetch(ctx context.Context, query domain.FeedQuery) ([]domain.NewsItem, error) {
	if m.registry == nil || m.registry.Len() == 0 {
		return nil, fmt.Errorf("no feed providers are registered")
	}

	var (
		aggregated []domain.NewsItem
		failures   []error
		names      = m.registry.Names()
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return aggregated, err
		}

		provider, err := m.registry.Resolve(name)
		if err != nil {
			return nil, err
		}

		m.debug("fetch provider", "provider", name, "tickers", query.Tickers, "limit", query.Limit)
		items, err := provider.Fetch(ctx, query)
		if err != nil {
			failures = append(failures, fmt.Errorf("provider %s: %w", name, err))
			if m.logger != nil {
				m.logger.Warn("feed provider unavailable", "provider", name, "error", err)
			}
			continue
		}

		for i := range items {
			if items[i].Source == "" {
				items[i].Source = name
			}
		}
		m.debug("provider produced items", "provider", name, "count", len(items))
		aggregated = append(aggregated, items...)
	}

	if len(failures) == len(names) {
		return nil, errors.Join(failures...)
	}
	return aggregated, nil
}

func (m *MultiSource) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
