package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"NewsSentiment/internal/config"
)

const keyPrefix = "news_sentiment:"

// Client wraps a go-redis client with convenience methods.
type Client struct {
	rdb *goredis.Client
}

// NewClient creates a client from config. Addr may be a redis:// URL or host:port.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	var opts *goredis.Options
	if strings.Contains(cfg.Addr, "://") {
		parsed, err := goredis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	return &Client{rdb: goredis.NewClient(opts)}, nil
}

// Ping verifies the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw go-redis client for advanced operations.
func (c *Client) Underlying() *goredis.Client {
	return c.rdb
}
