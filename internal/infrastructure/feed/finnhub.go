package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const finnhubDateLayout = "2006-01-02"

// Finnhub reads company news per ticker, or market news when no ticker is given.
type Finnhub struct {
	api      *finnhub.DefaultApiService
	category string
	limiter  *rate.Limiter
	clock    clockwork.Clock
}

var _ ports.FeedProvider = (*Finnhub)(nil)

// FinnhubOption customises the provider.
type FinnhubOption func(*finnhub.Configuration, *Finnhub)

// WithFinnhubServer points the client at another base URL.
func WithFinnhubServer(baseURL string) FinnhubOption {
	return func(cfg *finnhub.Configuration, _ *Finnhub) {
		cfg.Servers = finnhub.ServerConfigurations{{URL: baseURL}}
	}
}

// WithFinnhubClock replaces the clock used for the company news window.
func WithFinnhubClock(clock clockwork.Clock) FinnhubOption {
	return func(_ *finnhub.Configuration, f *Finnhub) {
		f.clock = clock
	}
}

// NewFinnhub builds the SDK client. Requests are paced to the free tier quota.
func NewFinnhub(cfg config.FinnhubConfig, opts ...FinnhubOption) *Finnhub {
	apiCfg := finnhub.NewConfiguration()
	apiCfg.AddDefaultHeader("X-Finnhub-Token", cfg.APIKey)

	category := cfg.Category
	if category == "" {
		category = "general"
	}
	f := &Finnhub{
		category: category,
		limiter:  rate.NewLimiter(rate.Limit(1), 5),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(apiCfg, f)
	}
	f.api = finnhub.NewAPIClient(apiCfg).DefaultApi
	return f
}

// Name identifies the provider inside the registry.
func (f *Finnhub) Name() string {
	return "finnhub"
}

// Fetch implements ports.FeedProvider.
func (f *Finnhub) Fetch(ctx context.Context, query domain.FeedQuery) ([]domain.NewsItem, error) {
	if len(query.Tickers) == 0 {
		return f.marketNews(ctx, query.Limit)
	}

	now := f.clock.Now().UTC()
	from := now.AddDate(0, 0, -1).Format(finnhubDateLayout)
	to := now.Format(finnhubDateLayout)

	var items []domain.NewsItem
	for _, ticker := range query.Tickers {
		if err := f.limiter.Wait(ctx); err != nil {
			return items, fmt.Errorf("finnhub rate limiter: %w", err)
		}
		res, _, err := f.api.CompanyNews(ctx).Symbol(ticker).From(from).To(to).Execute()
		if err != nil {
			return nil, fmt.Errorf("finnhub company news %s: %w", ticker, err)
		}
		for _, n := range res {
			item := finnhubItem(n.Url, n.Headline, n.Summary, n.Source, n.Related, n.Datetime, n.Category)
			if item.URL == "" {
				continue
			}
			if item.Ticker == "" {
				item.Ticker = ticker
			}
			items = append(items, item)
			if query.Limit > 0 && len(items) >= query.Limit {
				return items, nil
			}
		}
	}
	return items, nil
}

func (f *Finnhub) marketNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub rate limiter: %w", err)
	}
	res, _, err := f.api.MarketNews(ctx).Category(f.category).Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub market news: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(res))
	for _, n := range res {
		item := finnhubItem(n.Url, n.Headline, n.Summary, n.Source, n.Related, n.Datetime, n.Category)
		if item.URL == "" {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func finnhubItem(url, headline, summary, source, related *string, datetime *int64, category *string) domain.NewsItem {
	item := domain.NewsItem{
		URL:    strings.TrimSpace(deref(url)),
		Title:  plainText(deref(headline)),
		Body:   plainText(deref(summary)),
		Source: deref(source),
	}
	if datetime != nil && *datetime > 0 {
		item.PublishedAt = time.Unix(*datetime, 0).UTC()
	}
	if r := deref(related); r != "" {
		item.Ticker = strings.TrimSpace(strings.Split(r, ",")[0])
	}
	if c := deref(category); c != "" {
		item.Keywords = []string{c}
	}
	return item
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
