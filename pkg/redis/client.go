package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client owns one go-redis connection pool. Locks, rate limiters and health
// checks share it.
type Client struct {
	rdb    *redis.Client
	config *Config
}

// NewClient validates config, falling back to NewRedisConfig when nil, and
// builds the pool. Connections are opened lazily.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = NewRedisConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Redis configuration: %w", err)
	}

	return &Client{rdb: redis.NewClient(config.options()), config: config}, nil
}

func (c *Config) options() *redis.Options {
	return &redis.Options{
		Addr:           c.Addr(),
		ClientName:     c.ClientName,
		Password:       c.Password,
		DB:             c.Database,
		MinIdleConns:   c.MinIdleConns,
		MaxActiveConns: c.MaxActive,
		MaxRetries:     c.MaxRetries,
		DialTimeout:    c.DialTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetClient exposes the go-redis client for scripts and raw commands
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

func (c *Client) GetConfig() *Config {
	return c.config
}
