// Package app wires configuration into adapters, use cases and the process lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/infrastructure/feed"
	"NewsSentiment/internal/infrastructure/llm"
	"NewsSentiment/internal/infrastructure/ml"
	"NewsSentiment/internal/infrastructure/queue"
	redisinfra "NewsSentiment/internal/infrastructure/redis"
	"NewsSentiment/internal/infrastructure/scheduler"
	"NewsSentiment/internal/infrastructure/storage"
	"NewsSentiment/internal/infrastructure/telegram"
	"NewsSentiment/internal/logging"
	"NewsSentiment/internal/metrics"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/retry"
	"NewsSentiment/internal/scoring"
	"NewsSentiment/internal/usecase"
)

// startupPolicy bounds how long the process waits for Postgres and Redis.
var startupPolicy = retry.Policy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	db        *sql.DB
	redis     *redisinfra.Client
	service   *usecase.Service
	scheduler *usecase.Scheduler
}

// New builds the application. A nil logger is derived from config.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, registry: metrics.NewRegistry()}
	clock := clockwork.NewRealClock()

	store, err := a.openStore(ctx, clock)
	if err != nil {
		return nil, err
	}

	var (
		lock    ports.RunLock
		retries ports.RetryQueue = queue.NewMemoryRetryQueue()
	)
	if cfg.Redis.Addr != "" {
		client, err := a.openRedis(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.redis = client
		lock = redisinfra.NewRunLock(client.Underlying())
		retries = redisinfra.NewRetryQueue(client.Underlying())
	} else {
		baseLogger.Info("redis not configured, run lock and retry queue stay in process")
	}

	scorerMetrics := metrics.NewScorerMetrics(a.registry)
	primary := scoring.NewGuard(
		ml.NewClassifierScorer(cfg.Classifier.InferenceURL, cfg.Classifier.APIKey, cfg.Classifier.Model),
		guardOptions(cfg.Classifier.Limits, scorerMetrics, baseLogger),
	)
	llmScorer, err := llm.NewScorer(cfg.LLM)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("llm scorer: %w", err)
	}
	secondary := scoring.NewGuard(
		llmScorer,
		guardOptions(cfg.LLM.Limits, scorerMetrics, baseLogger),
	)
	if !primary.Configured() {
		baseLogger.Warn("classifier inference url not configured, every item will fail until it is")
	}

	pipelineMetrics := metrics.NewPipelineMetrics(a.registry)
	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Store:     store,
		Primary:   primary,
		Secondary: secondary,
		Metrics:   pipelineMetrics,
		Logger:    baseLogger.With("component", "ingestor"),
		Clock:     clock,
	})

	guard := usecase.NewScheduleGuard(usecase.GuardOptions{
		MinInterval: cfg.Scheduler.Interval,
		MaxItems:    cfg.Scheduler.MaxItemsPerRun,
		Lock:        lock,
		LockTTL:     cfg.Scheduler.LockTTL,
		Clock:       clock,
		Metrics:     metrics.NewGuardMetrics(a.registry),
		Logger:      baseLogger.With("component", "guard"),
	})

	a.service = usecase.NewService(usecase.ServiceDeps{
		Feed:         newFeed(cfg.Feeds, baseLogger.With("component", "feed")),
		Store:        store,
		Ingestor:     ingestor,
		Orchestrator: usecase.NewOrchestrator(ingestor, pipelineMetrics, baseLogger.With("component", "batch")),
		Trends:       usecase.NewTrendAggregator(store),
		Guard:        guard,
		Primary:      primary,
		Concurrency:  cfg.Batch.Concurrency,
		Clock:        clock,
		Logger:       baseLogger.With("component", "service"),
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, "")
	}

	a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:   scheduler.NewIntervalScheduler(guard.MinInterval(), clock),
		Service:  a.service,
		Retries:  retries,
		Policy:   retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, InitialBackoff: cfg.Retry.InitialBackoff, MaxBackoff: cfg.Retry.MaxBackoff},
		Notifier: notifier,
		Tickers:  cfg.Scheduler.Tickers,
		Topics:   cfg.Scheduler.Topics,
		Metrics:  pipelineMetrics,
		Logger:   baseLogger.With("component", "scheduler"),
	})

	return a, nil
}

// Service exposes the use cases to the CLI.
func (a *Application) Service() *usecase.Service {
	return a.service
}

// Serve starts the scheduler and the metrics endpoint and blocks until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           a.httpHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	if srv.Addr != "" {
		go func() {
			a.logger.Info("metrics server listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval, "tickers", a.cfg.Scheduler.Tickers)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop scheduler", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutdown metrics server", "error", err)
	}
	return runErr
}

// Close releases database and Redis connections.
func (a *Application) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies the embedded schema without building the rest of the application.
func Migrate(ctx context.Context, cfg config.Config) error {
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return storage.Migrate(ctx, db)
}

func (a *Application) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.service.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (a *Application) openStore(ctx context.Context, clock clockwork.Clock) (ports.ArticleStore, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("database dsn is empty, using in-memory store")
		return storage.NewMemoryRepository(clock), nil
	}

	err := retry.Do(ctx, startupPolicy, func(ctx context.Context) error {
		db, err := storage.Open(ctx, a.cfg.Database)
		if err != nil {
			a.logger.Warn("postgres not ready", "error", err)
			return err
		}
		a.db = db
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := storage.Migrate(ctx, a.db); err != nil {
		_ = a.Close()
		return nil, err
	}
	return storage.NewPostgresRepository(a.db, a.cfg.Database.QueryTimeout), nil
}

func (a *Application) openRedis(ctx context.Context) (*redisinfra.Client, error) {
	client, err := redisinfra.NewClient(a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, startupPolicy, func(ctx context.Context) error {
		if err := client.Ping(ctx); err != nil {
			a.logger.Warn("redis not ready", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func newFeed(cfg config.FeedsConfig, logger *slog.Logger) ports.FeedProvider {
	registry := feed.NewRegistry()
	if cfg.AlphaVantage.Enabled {
		registry.Register(feed.NewAlphaVantage(cfg.AlphaVantage, nil))
	}
	if cfg.Finnhub.Enabled {
		registry.Register(feed.NewFinnhub(cfg.Finnhub))
	}
	if registry.Len() == 0 {
		logger.Warn("no feed providers enabled")
	}
	return feed.NewMultiSource(registry, logger)
}

func guardOptions(l config.ScorerLimits, m *metrics.ScorerMetrics, logger *slog.Logger) scoring.GuardOptions {
	return scoring.GuardOptions{
		Timeout:         l.Timeout,
		MaxTextLength:   l.MaxTextLength,
		RatePerSecond:   l.RatePerSecond,
		Burst:           l.Burst,
		BreakerFailures: l.BreakerFailures,
		BreakerCooldown: l.BreakerCooldown,
		Metrics:         m,
		Logger:          logger,
	}
}
