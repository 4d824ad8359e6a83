package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"NewsSentiment/internal/app"
	"NewsSentiment/internal/config"
	"NewsSentiment/internal/logging"
	"NewsSentiment/internal/usecase"
)

var (
	tickers     []string
	topics      []string
	limit       int
	ticker      string
	windowHours int
	debugMode   bool
)

var rootCmd = &cobra.Command{
	Use:           "newssentiment",
	Short:         "Ingest financial news and score its sentiment",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled ingestion and serve metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and ingest one batch now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			report, err := a.Service().IngestBatch(ctx, usecase.BatchRequest{
				Tickers: tickers,
				Topics:  topics,
				Limit:   limit,
				Manual:  true,
			})
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show sentiment trend for a time window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			report, err := a.Service().GetTrends(ctx, ticker, windowHours)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ingestion statistics for a time window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			stats, err := a.Service().GetStats(ctx, windowHours)
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently processed articles, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			articles, err := a.Service().RecentArticles(ctx, ticker, windowHours, limit)
			if err != nil {
				return err
			}
			return printJSON(articles)
		})
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <article-id>",
	Short: "Re-score a stored article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("article id: %w", err)
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			out, err := a.Service().Reprocess(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(out)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Migrate(cmd.Context(), loadConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	ingestCmd.Flags().StringSliceVar(&tickers, "tickers", nil, "Ticker symbols to fetch news for")
	ingestCmd.Flags().StringSliceVar(&topics, "topics", nil, "Provider topics to filter by")
	ingestCmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to ingest (0 means the configured ceiling)")

	trendsCmd.Flags().StringVar(&ticker, "ticker", "", "Restrict the trend to one ticker")
	trendsCmd.Flags().IntVar(&windowHours, "hours", 24, "Window size in hours")
	statsCmd.Flags().IntVar(&windowHours, "hours", 24, "Window size in hours")

	recentCmd.Flags().StringVar(&ticker, "ticker", "", "Restrict the listing to one ticker")
	recentCmd.Flags().IntVar(&windowHours, "hours", 24, "Window size in hours")
	recentCmd.Flags().IntVar(&limit, "limit", 0, "Maximum articles to list (0 means the default)")

	rootCmd.AddCommand(serveCmd, ingestCmd, trendsCmd, statsCmd, recentCmd, reprocessCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg := config.Load()
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

func withApp(ctx context.Context, run func(context.Context, *app.Application) error) error {
	cfg := loadConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return run(ctx, application)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
