package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "arabpress:seen:"

// RedisStore keeps seen links as expiring Redis keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url and checks the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Seen(ctx context.Context, link string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+link).Result()
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", link, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, link, title string) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, keyPrefix+link, title, ttl).Err(); err != nil {
		return fmt.Errorf("marking %s: %w", link, err)
	}
	return nil
}

// Close releases the connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
