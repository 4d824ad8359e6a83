package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// TrendAggregator builds read-side trend projections from the store.
type TrendAggregator struct {
	store ports.ArticleStore
}

// NewTrendAggregator wires the store.
func NewTrendAggregator(store ports.ArticleStore) *TrendAggregator {
	return &TrendAggregator{store: store}
}

// Trends summarises processed articles published in [start, end), newest
// first. An empty window yields zero count and a nil average.
func (t *TrendAggregator) Trends(ctx context.Context, start, end time.Time, ticker string) (domain.TrendReport, error) {
	report := domain.TrendReport{
		WindowStart: start,
		WindowEnd:   end,
		Ticker:      ticker,
		Points:      []domain.TrendPoint{},
		Summary:     domain.TrendSummary{LabelDistribution: map[domain.Label]int{}},
	}
	if !start.Before(end) {
		return report, nil
	}

	articles, err := t.store.QueryWindow(ctx, ports.WindowQuery{Start: start, End: end, Ticker: ticker})
	if err != nil {
		return domain.TrendReport{}, fmt.Errorf("query window: %w", err)
	}

	var sum float64
	for _, a := range articles {
		if !a.IsProcessed || a.Verdict == nil {
			continue
		}
		if a.PublishedAt.Before(start) || !a.PublishedAt.Before(end) {
			continue
		}
		if ticker != "" && a.Ticker != ticker {
			continue
		}

		report.Points = append(report.Points, domain.TrendPoint{
			PublishedAt: a.PublishedAt,
			Score:       a.Verdict.Score,
			Title:       a.Title,
			Ticker:      a.Ticker,
		})
		report.Summary.LabelDistribution[a.Verdict.Label]++
		sum += a.Verdict.Score
	}

	sort.SliceStable(report.Points, func(i, j int) bool {
		return report.Points[i].PublishedAt.After(report.Points[j].PublishedAt)
	})

	report.Summary.Count = len(report.Points)
	if report.Summary.Count > 0 {
		avg := sum / float64(report.Summary.Count)
		report.Summary.AverageScore = &avg
	}
	return report, nil
}
