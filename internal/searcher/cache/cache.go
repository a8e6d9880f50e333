// Package cache memoises per-collection query results. Entries are keyed by
// collection, normalised query and topK, and are dropped for a collection
// whenever its index is rebuilt.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
)

const keyPrefix = "memory:"

// Backend stores encoded result lists.
type Backend interface {
	Get(ctx context.Context, key string) ([]executor.Hit, bool, error)
	Set(ctx context.Context, key string, hits []executor.Hit) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	backend Backend
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend) *QueryCache {
	return &QueryCache{
		backend: backend,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, collection, query string, topK int) ([]executor.Hit, bool) {
	key := BuildKey(collection, query, topK)
	hits, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "collection", collection, "query", query, "key", key)
	return hits, true
}

func (c *QueryCache) Set(ctx context.Context, collection, query string, topK int, hits []executor.Hit) {
	key := BuildKey(collection, query, topK)
	if err := c.backend.Set(ctx, key, hits); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached hits for the query or computes and stores
// them. Concurrent misses for the same key share one computation. The
// boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	collection, query string,
	topK int,
	computeFn func() []executor.Hit,
) ([]executor.Hit, bool) {
	if hits, ok := c.Get(ctx, collection, query, topK); ok {
		return hits, true
	}
	key := BuildKey(collection, query, topK)
	val, _, _ := c.group.Do(key, func() (interface{}, error) {
		hits := computeFn()
		c.Set(ctx, collection, query, topK, hits)
		return hits, nil
	})
	return val.([]executor.Hit), false
}

// Invalidate drops every cached result of collection.
func (c *QueryCache) Invalidate(ctx context.Context, collection string) error {
	deleted, err := c.backend.DeletePrefix(ctx, collectionPrefix(collection))
	if err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", collection, err)
	}
	c.logger.Info("cache invalidate", "collection", collection, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key. Queries that normalise to the same text
// tokenise identically and share a key.
func BuildKey(collection, query string, topK int) string {
	raw := tokenizer.Normalize(query) + "|k=" + strconv.Itoa(topK)
	hash := sha256.Sum256([]byte(raw))
	return collectionPrefix(collection) + hex.EncodeToString(hash[:16])
}

// collectionPrefix hex-encodes the name so it cannot contain glob or
// separator characters.
func collectionPrefix(collection string) string {
	return keyPrefix + hex.EncodeToString([]byte(collection)) + ":"
}
