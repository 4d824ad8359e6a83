package domain

import "time"

// TrendPoint is one processed article inside a trend window.
type TrendPoint struct {
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
	Title       string    `json:"title"`
	Ticker      string    `json:"ticker,omitempty"`
}

// TrendSummary aggregates a window. AverageScore is nil when Count is zero.
type TrendSummary struct {
	Count             int           `json:"count"`
	AverageScore      *float64      `json:"average_score,omitempty"`
	LabelDistribution map[Label]int `json:"label_distribution"`
}

// TrendReport is the read-side projection returned to callers.
type TrendReport struct {
	WindowStart time.Time    `json:"window_start"`
	WindowEnd   time.Time    `json:"window_end"`
	Ticker      string       `json:"ticker,omitempty"`
	Points      []TrendPoint `json:"points"`
	Summary     TrendSummary `json:"summary"`
}

// TickerCount is one row of the top-tickers statistic.
type TickerCount struct {
	Ticker string `json:"ticker"`
	Count  int    `json:"count"`
}

// Stats is the ingestion health summary for a window.
type Stats struct {
	TotalArticles     int           `json:"total_articles"`
	ProcessedArticles int           `json:"processed_articles"`
	ProcessingRate    float64       `json:"processing_rate"`
	AverageScore      *float64      `json:"average_score,omitempty"`
	TopTickers        []TickerCount `json:"top_tickers"`
	WindowHours       int           `json:"time_window_hours"`
}
