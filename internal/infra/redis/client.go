package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the cache and failed pair ledger.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewClientFromRedis(rdb, cfg.Prefix), nil
}

// NewClientFromRedis wraps an existing go-redis client.
func NewClientFromRedis(rdb *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "debtds"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) namespaceKey(namespace string) string {
	return fmt.Sprintf("%s:kv:%s", c.prefix, namespace)
}

func (c *Client) failedQueueKey(job string) string {
	return fmt.Sprintf("%s:failed_pairs:%s", c.prefix, job)
}

func (c *Client) failedPairKey(id string) string {
	return fmt.Sprintf("%s:failed_pair:%s", c.prefix, id)
}

func (c *Client) failedIndexKey(job string) string {
	return fmt.Sprintf("%s:failed_index:%s", c.prefix, job)
}
