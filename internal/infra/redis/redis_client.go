package redis

import (
	"context"

	"stock-metadata-generator/internal/config"

	"github.com/go-redis/redis/v8"
)

type RedisClient interface {
	Ping(ctx context.Context) error
	LRange(ctx context.Context, key string) ([]string, error)
	// ReplaceList atomically swaps the list at key for values.
	ReplaceList(ctx context.Context, key string, values []string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) LRange(ctx context.Context, key string) ([]string, error) {
	return c.cli.LRange(ctx, key, 0, -1).Result()
}

func (c *redClient) ReplaceList(ctx context.Context, key string, values []string) error {
	_, err := c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			args := make([]interface{}, len(values))
			for i, v := range values {
				args[i] = v
			}
			pipe.RPush(ctx, key, args...)
		}
		return nil
	})
	return err
}

func (c *redClient) Close() error { return c.cli.Close() }
