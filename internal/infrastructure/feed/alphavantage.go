package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const alphaVantageTimeLayout = "20060102T150405"

// AlphaVantage reads the NEWS_SENTIMENT endpoint.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ports.FeedProvider = (*AlphaVantage)(nil)

// NewAlphaVantage builds the provider from config. A nil client gets a 30s timeout.
func NewAlphaVantage(cfg config.AlphaVantageConfig, client *http.Client) *AlphaVantage {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.alphavantage.co/query"
	}
	return &AlphaVantage{baseURL: base, apiKey: cfg.APIKey, client: client}
}

// Name identifies the provider inside the registry.
func (a *AlphaVantage) Name() string {
	return "alphavantage"
}

// Fetch returns the latest items for the query's tickers and topics.
func (a *AlphaVantage) Fetch(ctx context.Context, query domain.FeedQuery) ([]domain.NewsItem, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("alphavantage api key is not configured")
	}

	endpoint, err := a.buildURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage status %s", resp.Status)
	}

	var raw avResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	if raw.Feed == nil {
		// Quota and key errors come back as 200 with a message field.
		if msg := firstNonEmpty(raw.Information, raw.Note, raw.ErrorMessage); msg != "" {
			return nil, fmt.Errorf("alphavantage: %s", msg)
		}
		return nil, nil
	}

	items := make([]domain.NewsItem, 0, len(raw.Feed))
	for _, payload := range raw.Feed {
		var entry avFeedItem
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("alphavantage decode item: %w", err)
		}
		if entry.URL == "" {
			continue
		}
		items = append(items, entry.toItem(payload))
		if query.Limit > 0 && len(items) >= query.Limit {
			break
		}
	}
	return items, nil
}

func (a *AlphaVantage) buildURL(query domain.FeedQuery) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("alphavantage base url: %w", err)
	}
	q := u.Query()
	q.Set("function", "NEWS_SENTIMENT")
	q.Set("sort", "LATEST")
	q.Set("apikey", a.apiKey)
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if len(query.Tickers) > 0 {
		q.Set("tickers", strings.Join(query.Tickers, ","))
	}
	if len(query.Topics) > 0 {
		q.Set("topics", strings.Join(query.Topics, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type avResponse struct {
	Feed         []json.RawMessage `json:"feed"`
	Information  string            `json:"Information"`
	Note         string            `json:"Note"`
	ErrorMessage string            `json:"Error Message"`
}

type avFeedItem struct {
	Title           string              `json:"title"`
	URL             string              `json:"url"`
	TimePublished   string              `json:"time_published"`
	Authors         []string            `json:"authors"`
	Summary         string              `json:"summary"`
	Source          string              `json:"source"`
	Topics          []avTopic           `json:"topics"`
	TickerSentiment []avTickerSentiment `json:"ticker_sentiment"`
}

type avTopic struct {
	Topic string `json:"topic"`
}

type avTickerSentiment struct {
	Ticker string `json:"ticker"`
}

func (e avFeedItem) toItem(payload json.RawMessage) domain.NewsItem {
	item := domain.NewsItem{
		URL:     strings.TrimSpace(e.URL),
		Title:   plainText(e.Title),
		Body:    plainText(e.Summary),
		Source:  e.Source,
		Authors: e.Authors,
		Raw:     append(json.RawMessage(nil), payload...),
	}
	if t, err := time.ParseInLocation(alphaVantageTimeLayout, e.TimePublished, time.UTC); err == nil {
		item.PublishedAt = t
	}
	for _, ts := range e.TickerSentiment {
		if ts.Ticker != "" {
			item.Ticker = ts.Ticker
			break
		}
	}
	for _, topic := range e.Topics {
		item.Keywords = append(item.Keywords, topic.Topic)
	}
	return item
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
