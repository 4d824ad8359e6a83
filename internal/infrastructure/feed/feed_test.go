package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
)

const avPayload = `{
  "items": "2",
  "feed": [
    {
      "title": "Apple <b>beats</b> estimates",
      "url": "https://example.com/apple-beats",
      "time_published": "20240301T143000",
      "authors": ["Jane Doe"],
      "summary": "<p>Revenue rose   12%.</p>",
      "source": "Reuters",
      "topics": [{"topic": "Earnings", "relevance_score": "0.9"}],
      "ticker_sentiment": [{"ticker": "AAPL"}, {"ticker": "MSFT"}]
    },
    {
      "title": "no url",
      "url": ""
    }
  ]
}`

func TestAlphaVantage_Fetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(avPayload))
	}))
	defer srv.Close()

	av := NewAlphaVantage(config.AlphaVantageConfig{BaseURL: srv.URL, APIKey: "demo"}, srv.Client())
	items, err := av.Fetch(context.Background(), domain.FeedQuery{Tickers: []string{"AAPL", "MSFT"}, Topics: []string{"earnings"}, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "NEWS_SENTIMENT", gotQuery["function"])
	assert.Equal(t, "AAPL,MSFT", gotQuery["tickers"])
	assert.Equal(t, "earnings", gotQuery["topics"])
	assert.Equal(t, "5", gotQuery["limit"])
	assert.Equal(t, "demo", gotQuery["apikey"])

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "https://example.com/apple-beats", item.URL)
	assert.Equal(t, "Apple beats estimates", item.Title)
	assert.Equal(t, "Revenue rose 12%.", item.Body)
	assert.Equal(t, "Reuters", item.Source)
	assert.Equal(t, "AAPL", item.Ticker)
	assert.Equal(t, []string{"Jane Doe"}, item.Authors)
	assert.Equal(t, []string{"Earnings"}, item.Keywords)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), item.PublishedAt)
	assert.Contains(t, string(item.Raw), `"ticker_sentiment"`)
}

func TestAlphaVantage_UnparsableTimeLeavesZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"feed": [
			{"title": "bad time", "url": "https://example.com/bad-time", "time_published": "2024-03-01 14:30"},
			{"title": "no time", "url": "https://example.com/no-time"}
		]}`))
	}))
	defer srv.Close()

	av := NewAlphaVantage(config.AlphaVantageConfig{BaseURL: srv.URL, APIKey: "demo"}, srv.Client())
	items, err := av.Fetch(context.Background(), domain.FeedQuery{})
	require.NoError(t, err)

	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, item.PublishedAt.IsZero(), item.URL)
	}
}

func TestAlphaVantage_QuotaMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Information": "rate limit reached"}`))
	}))
	defer srv.Close()

	av := NewAlphaVantage(config.AlphaVantageConfig{BaseURL: srv.URL, APIKey: "demo"}, nil)
	_, err := av.Fetch(context.Background(), domain.FeedQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit reached")
}

func TestAlphaVantage_MissingKey(t *testing.T) {
	_, err := NewAlphaVantage(config.AlphaVantageConfig{}, nil).Fetch(context.Background(), domain.FeedQuery{})
	assert.Error(t, err)
}

func TestFinnhub_CompanyNews(t *testing.T) {
	var gotToken, gotSymbol, gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		gotToken = r.Header.Get("X-Finnhub-Token")
		gotSymbol = r.URL.Query().Get("symbol")
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"category":"company","datetime":1709303400,"headline":"Tesla recalls","id":1,"related":"","source":"CNBC","summary":"Recall of 2M cars","url":"https://example.com/tsla"},
			{"category":"company","datetime":1709303400,"headline":"skip","id":2,"url":""}
		]`))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	f := NewFinnhub(config.FinnhubConfig{APIKey: "tok"}, WithFinnhubServer(srv.URL), WithFinnhubClock(clock))

	items, err := f.Fetch(context.Background(), domain.FeedQuery{Tickers: []string{"TSLA"}})
	require.NoError(t, err)

	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "TSLA", gotSymbol)
	assert.Equal(t, "2024-03-01", gotFrom)
	assert.Equal(t, "2024-03-02", gotTo)

	require.Len(t, items, 1)
	assert.Equal(t, "TSLA", items[0].Ticker)
	assert.Equal(t, "Tesla recalls", items[0].Title)
	assert.Equal(t, "Recall of 2M cars", items[0].Body)
	assert.Equal(t, time.Unix(1709303400, 0).UTC(), items[0].PublishedAt)
}

func TestFinnhub_MarketNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"category":"top news","datetime":1709303400,"headline":"Markets rally","related":"SPY,QQQ","source":"Reuters","summary":"","url":"https://example.com/rally"},
			{"category":"top news","datetime":1709303400,"headline":"Second","related":"","source":"Reuters","summary":"","url":"https://example.com/second"}
		]`))
	}))
	defer srv.Close()

	f := NewFinnhub(config.FinnhubConfig{APIKey: "tok"}, WithFinnhubServer(srv.URL))
	items, err := f.Fetch(context.Background(), domain.FeedQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SPY", items[0].Ticker)
	assert.Equal(t, []string{"top news"}, items[0].Keywords)
}

type stubProvider struct {
	name  string
	items []domain.NewsItem
	err   error
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Fetch(context.Context, domain.FeedQuery) ([]domain.NewsItem, error) {
	return s.items, s.err
}

func TestMultiSource_SkipsFailingProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubProvider{name: "broken", err: errors.New("boom")})
	reg.Register(stubProvider{name: "good", items: []domain.NewsItem{{URL: "https://example.com/a"}}})

	items, err := NewMultiSource(reg, nil).Fetch(context.Background(), domain.FeedQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].Source)
}

func TestMultiSource_AllFail(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubProvider{name: "a", err: errors.New("down")})
	reg.Register(stubProvider{name: "b", err: errors.New("down")})

	_, err := NewMultiSource(reg, nil).Fetch(context.Background(), domain.FeedQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider a")
	assert.Contains(t, err.Error(), "provider b")
}

func TestMultiSource_Empty(t *testing.T) {
	_, err := NewMultiSource(NewRegistry(), nil).Fetch(context.Background(), domain.FeedQuery{})
	assert.Error(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubProvider{name: "b"})
	reg.Register(stubProvider{name: "a"})

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	_, err := reg.Resolve("missing")
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world", plainText("<div>Hello <script>x()</script><i>world</i></div>"))
	assert.Equal(t, "a b", plainText("  a \n\t b "))
	assert.Equal(t, "", plainText(""))
}
