package cache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
)

// MemoryBackend keeps results in a bounded in-process LRU.
type MemoryBackend struct {
	entries *lru.Cache[string, []executor.Hit]
}

func NewMemoryBackend(size int) (*MemoryBackend, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, []executor.Hit](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &MemoryBackend{entries: entries}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]executor.Hit, bool, error) {
	hits, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]executor.Hit(nil), hits...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, hits []executor.Hit) error {
	m.entries.Add(key, append([]executor.Hit(nil), hits...))
	return nil
}

func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	var deleted int64
	for _, key := range m.entries.Keys() {
		if strings.HasPrefix(key, prefix) && m.entries.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryBackend) Len() int {
	return m.entries.Len()
}
