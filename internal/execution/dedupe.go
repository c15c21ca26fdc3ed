package execution

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper backs Deduper with Redis: Seen is an EXISTS check and Mark a
// plain SET with a TTL, mirroring the TTL-guard construction pattern in
// internal/state/redis.go.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper pings on construct so a misconfigured address fails at
// startup rather than on the first handler call.
func NewRedisDeduper(addr, password string, db int) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("execution: redis ping failed: %w", err)
	}
	return &RedisDeduper{client: client}, nil
}

func dedupeRedisKey(key string) string { return "execdupe:" + key }

// Seen reports whether key is already marked within DedupeWindow.
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeRedisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records key with a DedupeWindow TTL.
func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	return d.client.Set(ctx, dedupeRedisKey(key), 1, DedupeWindow).Err()
}
