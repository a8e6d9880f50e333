package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/redis"
)

// RedisBackend stores results as JSON strings with a TTL.
type RedisBackend struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *pkgredis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]executor.Hit, bool, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var hits []executor.Hit
	if err := json.Unmarshal([]byte(data), &hits); err != nil {
		return nil, false, fmt.Errorf("unmarshaling cached hits: %w", err)
	}
	return hits, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, hits []executor.Hit) error {
	data, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("marshaling hits: %w", err)
	}
	return r.client.Set(ctx, key, data, r.ttl)
}

func (r *RedisBackend) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return r.client.FlushByPattern(ctx, prefix+"*")
}
