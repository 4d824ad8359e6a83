package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const (
	articlesTable       = "news_articles"
	defaultQueryTimeout = 5 * time.Second
	topTickersLimit     = 10
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "url", "title", "content", "source", "authors", "ticker", "published_at", "keywords", "raw_payload",
	"sentiment_score", "sentiment_label", "confidence_score", "sentiment_strength", "agreement",
	"interpretation", "model_name", "sentiment_vector", "scorer_results",
	"is_processed", "is_archived", "created_at", "updated_at",
}

// upsertSuffix completes an unprocessed row in place. A processed row is left
// untouched and yields no RETURNING row.
const upsertSuffix = `ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    source = EXCLUDED.source,
    authors = EXCLUDED.authors,
    ticker = EXCLUDED.ticker,
    published_at = EXCLUDED.published_at,
    keywords = EXCLUDED.keywords,
    raw_payload = COALESCE(EXCLUDED.raw_payload, news_articles.raw_payload),
    sentiment_score = EXCLUDED.sentiment_score,
    sentiment_label = EXCLUDED.sentiment_label,
    confidence_score = EXCLUDED.confidence_score,
    sentiment_strength = EXCLUDED.sentiment_strength,
    agreement = EXCLUDED.agreement,
    interpretation = EXCLUDED.interpretation,
    model_name = EXCLUDED.model_name,
    sentiment_vector = EXCLUDED.sentiment_vector,
    scorer_results = EXCLUDED.scorer_results,
    is_processed = TRUE,
    updated_at = NOW()
WHERE news_articles.is_processed = FALSE
RETURNING id, (xmax = 0) AS inserted`

// PostgresRepository persists articles and their verdicts into Postgres.
type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

var _ ports.ArticleStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation. Every call runs under
// queryTimeout.
func NewPostgresRepository(db *sql.DB, queryTimeout time.Duration) *PostgresRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresRepository{db: db, timeout: queryTimeout}
}

// Ping verifies the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// FindByURL returns the article stored under url, or nil.
func (r *PostgresRepository) FindByURL(ctx context.Context, url string) (*domain.StoredArticle, error) {
	query, args, err := psql.Select(articleColumns...).From(articlesTable).Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find by url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by url: %w", err)
	}
	return &article, nil
}

// FindByID returns domain.ErrArticleNotFound for unknown ids.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.StoredArticle, error) {
	query, args, err := psql.Select(articleColumns...).From(articlesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("build find by id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredArticle{}, fmt.Errorf("article %s: %w", id, domain.ErrArticleNotFound)
	}
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("find by id: %w", err)
	}
	return article, nil
}

// UpsertProcessed inserts or completes the article with its verdict in one statement.
func (r *PostgresRepository) UpsertProcessed(ctx context.Context, article domain.StoredArticle) (uuid.UUID, bool, error) {
	query, args, err := buildUpsert(article)
	if err != nil {
		return uuid.Nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		id       uuid.UUID
		inserted bool
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id, &inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("upsert %s: %w", article.URL, domain.ErrAlreadyProcessed)
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert processed: %w", err)
	}
	return id, inserted, nil
}

// RewriteVerdict replaces the verdict of an existing article and marks it processed.
func (r *PostgresRepository) RewriteVerdict(ctx context.Context, id uuid.UUID, verdict domain.Verdict) error {
	query, args, err := buildRewrite(id, verdict)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rewrite verdict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rewrite verdict rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("article %s: %w", id, domain.ErrArticleNotFound)
	}
	return nil
}

// QueryWindow lists processed articles in [Start, End), newest first.
func (r *PostgresRepository) QueryWindow(ctx context.Context, q ports.WindowQuery) ([]domain.StoredArticle, error) {
	query, args, err := buildWindowQuery(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}

	var articles []domain.StoredArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return articles, nil
}

// Stats summarises articles published since the given instant.
func (r *PostgresRepository) Stats(ctx context.Context, since time.Time) (domain.Stats, error) {
	totalsQuery, totalsArgs, err := psql.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE is_processed)", "AVG(sentiment_score) FILTER (WHERE is_processed)").
		From(articlesTable).
		Where(sq.GtOrEq{"published_at": since}).
		ToSql()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("build stats totals: %w", err)
	}

	tickersQuery, tickersArgs, err := buildTopTickers(since)
	if err != nil {
		return domain.Stats{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		stats domain.Stats
		avg   sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, totalsQuery, totalsArgs...).Scan(&stats.TotalArticles, &stats.ProcessedArticles, &avg); err != nil {
		return domain.Stats{}, fmt.Errorf("stats totals: %w", err)
	}
	if avg.Valid {
		stats.AverageScore = &avg.Float64
	}
	if stats.TotalArticles > 0 {
		stats.ProcessingRate = float64(stats.ProcessedArticles) / float64(stats.TotalArticles) * 100
	}

	rows, err := r.db.QueryContext(ctx, tickersQuery, tickersArgs...)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats tickers: %w", err)
	}

	stats.TopTickers = []domain.TickerCount{}
	for rows.Next() {
		var tc domain.TickerCount
		if err := rows.Scan(&tc.Ticker, &tc.Count); err != nil {
			_ = rows.Close()
			return domain.Stats{}, fmt.Errorf("scan ticker: %w", err)
		}
		stats.TopTickers = append(stats.TopTickers, tc)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return domain.Stats{}, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return domain.Stats{}, fmt.Errorf("close rows: %w", closeErr)
	}

	return stats, nil
}

func buildUpsert(a domain.StoredArticle) (string, []any, error) {
	if a.Verdict == nil {
		return "", nil, fmt.Errorf("upsert %s: verdict is required", a.URL)
	}
	verdict, err := verdictValues(*a.Verdict)
	if err != nil {
		return "", nil, err
	}

	values := []any{
		a.ID, a.URL, a.Title, a.Body, a.Source,
		pq.StringArray(nonNil(a.Authors)), nullString(a.Ticker), a.PublishedAt,
		pq.StringArray(nonNil(a.Keywords)), nullJSON(a.Raw),
	}
	values = append(values, verdict...)
	values = append(values, true)

	query, args, err := psql.Insert(articlesTable).
		Columns(
			"id", "url", "title", "content", "source", "authors", "ticker", "published_at", "keywords", "raw_payload",
			"sentiment_score", "sentiment_label", "confidence_score", "sentiment_strength", "agreement",
			"interpretation", "model_name", "sentiment_vector", "scorer_results", "is_processed",
		).
		Values(values...).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

func buildRewrite(id uuid.UUID, v domain.Verdict) (string, []any, error) {
	values, err := verdictValues(v)
	if err != nil {
		return "", nil, err
	}

	query, args, err := psql.Update(articlesTable).
		SetMap(map[string]any{
			"sentiment_score":    values[0],
			"sentiment_label":    values[1],
			"confidence_score":   values[2],
			"sentiment_strength": values[3],
			"agreement":          values[4],
			"interpretation":     values[5],
			"model_name":         values[6],
			"sentiment_vector":   values[7],
			"scorer_results":     values[8],
			"is_processed":       true,
			"updated_at":         sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build rewrite: %w", err)
	}
	return query, args, nil
}

func buildWindowQuery(q ports.WindowQuery) (string, []any, error) {
	where := sq.And{
		sq.Eq{"is_processed": true},
		sq.GtOrEq{"published_at": q.Start},
		sq.Lt{"published_at": q.End},
	}
	if q.Ticker != "" {
		where = append(where, sq.Eq{"ticker": q.Ticker})
	}

	query, args, err := psql.Select(articleColumns...).
		From(articlesTable).
		Where(where).
		OrderBy("published_at DESC", "id").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build window query: %w", err)
	}
	return query, args, nil
}

func buildTopTickers(since time.Time) (string, []any, error) {
	query, args, err := psql.Select("ticker", "COUNT(*) AS articles").
		From(articlesTable).
		Where(sq.And{sq.GtOrEq{"published_at": since}, sq.NotEq{"ticker": nil}}).
		GroupBy("ticker").
		OrderBy("articles DESC", "ticker").
		Limit(topTickersLimit).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build top tickers: %w", err)
	}
	return query, args, nil
}

type scorerResults struct {
	Primary   domain.ScoreOutcome `json:"primary"`
	Secondary domain.ScoreOutcome `json:"secondary"`
}

// verdictValues orders values as score, label, confidence, strength,
// agreement, interpretation, model, vector, scorer results.
func verdictValues(v domain.Verdict) ([]any, error) {
	results, err := json.Marshal(scorerResults{Primary: v.Primary, Secondary: v.Secondary})
	if err != nil {
		return nil, fmt.Errorf("marshal scorer results: %w", err)
	}

	var vector any
	if len(v.Embedding) > 0 {
		vector = pq.Float64Array(v.Embedding)
	}

	return []any{
		v.Score, string(v.Label), v.Confidence, v.Strength, v.Agreement,
		v.Interpretation, v.Model, vector, string(results),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.StoredArticle, error) {
	var (
		a                                    domain.StoredArticle
		authors, keywords                    pq.StringArray
		ticker, label, interpretation, model sql.NullString
		score, confidence, strength, agree   sql.NullFloat64
		raw, results                         []byte
		vector                               pq.Float64Array
	)

	err := row.Scan(
		&a.ID, &a.URL, &a.Title, &a.Body, &a.Source, &authors, &ticker, &a.PublishedAt, &keywords, &raw,
		&score, &label, &confidence, &strength, &agree,
		&interpretation, &model, &vector, &results,
		&a.IsProcessed, &a.IsArchived, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.StoredArticle{}, err
	}

	a.Authors = []string(authors)
	a.Keywords = []string(keywords)
	a.Ticker = ticker.String
	if len(raw) > 0 {
		a.Raw = json.RawMessage(raw)
	}

	if score.Valid {
		v := domain.Verdict{
			Score:          score.Float64,
			Label:          domain.Label(label.String),
			Confidence:     confidence.Float64,
			Strength:       strength.Float64,
			Interpretation: interpretation.String,
			Model:          model.String,
			Embedding:      []float64(vector),
		}
		if agree.Valid {
			v.Agreement = &agree.Float64
		}
		if len(results) > 0 {
			var sr scorerResults
			if err := json.Unmarshal(results, &sr); err != nil {
				return domain.StoredArticle{}, fmt.Errorf("decode scorer results: %w", err)
			}
			v.Primary, v.Secondary = sr.Primary, sr.Secondary
		}
		a.Verdict = &v
	}

	return a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
