package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewsItem is a feed entry before persistence. URL is the sole identity.
type NewsItem struct {
	URL         string
	Title       string
	Body        string
	Source      string
	Authors     []string
	Ticker      string
	PublishedAt time.Time
	Keywords    []string
	Raw         json.RawMessage
}

// ScoringText returns the body when present, otherwise the title.
func (n NewsItem) ScoringText() string {
	if body := strings.TrimSpace(n.Body); body != "" {
		return body
	}
	return strings.TrimSpace(n.Title)
}

// StoredArticle is the persisted article record owned by the ArticleStore.
type StoredArticle struct {
	ID          uuid.UUID
	URL         string
	Title       string
	Body        string
	Source      string
	Authors     []string
	Ticker      string
	PublishedAt time.Time
	Keywords    []string
	Raw         json.RawMessage
	Verdict     *Verdict
	IsProcessed bool
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewStoredArticle builds an unprocessed record from a feed item.
func NewStoredArticle(id uuid.UUID, item NewsItem) StoredArticle {
	return StoredArticle{
		ID:          id,
		URL:         item.URL,
		Title:       item.Title,
		Body:        item.Body,
		Source:      item.Source,
		Authors:     item.Authors,
		Ticker:      item.Ticker,
		PublishedAt: item.PublishedAt,
		Keywords:    NormalizeKeywords(item.Keywords),
		Raw:         item.Raw,
	}
}

// Item returns the feed-shaped view of a stored article.
func (a StoredArticle) Item() NewsItem {
	return NewsItem{
		URL:         a.URL,
		Title:       a.Title,
		Body:        a.Body,
		Source:      a.Source,
		Authors:     a.Authors,
		Ticker:      a.Ticker,
		PublishedAt: a.PublishedAt,
		Keywords:    a.Keywords,
		Raw:         a.Raw,
	}
}

// NormalizeKeywords lowercases, trims, dedupes and sorts topic keywords.
func NormalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FeedQuery narrows a provider fetch.
type FeedQuery struct {
	Tickers []string
	Topics  []string
	Limit   int
}

// RetryEnvelope carries a failed item between scheduled runs.
type RetryEnvelope struct {
	Item      NewsItem  `json:"item"`
	Attempt   int       `json:"attempt"`
	NotBefore time.Time `json:"not_before"`
	LastError string    `json:"last_error"`
}
