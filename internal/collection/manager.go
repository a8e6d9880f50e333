// Package collection owns the per-collection BM25 indices. The Manager
// discovers collections under a root directory, loads persisted sidecars,
// builds missing indices on demand and answers single- and cross-collection
// queries.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/config"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/metrics"
)

const (
	ScopeCollection = "collection"
	ScopeAll        = "all"

	defaultBuildConcurrency = 4
)

// EventSink receives build and query events. analytics.Collector satisfies it.
type EventSink interface {
	Track(key string, event any)
}

// BuildRecorder persists successful builds. analytics.HistoryStore satisfies it.
type BuildRecorder interface {
	RecordBuild(ctx context.Context, event analytics.BuildEvent) error
}

// Options configures a Manager. Cache, Metrics, Events and History are
// optional.
type Options struct {
	Root             string
	SidecarName      string
	Extensions       []string
	Params           ranker.Params
	PreviewLength    int
	BuildConcurrency int

	Cache   *cache.QueryCache
	Metrics *metrics.Metrics
	Events  EventSink
	History BuildRecorder
}

// OptionsFromConfig maps the memory section of the service config.
func OptionsFromConfig(cfg config.MemoryConfig) Options {
	return Options{
		Root:             cfg.Root,
		SidecarName:      cfg.SidecarName,
		Extensions:       cfg.Extensions,
		Params:           ranker.Params{K1: cfg.K1, B: cfg.B},
		PreviewLength:    cfg.PreviewLength,
		BuildConcurrency: cfg.BuildConcurrency,
	}
}

// BuildReport describes a successful build.
type BuildReport struct {
	Collection   string        `json:"collection"`
	Documents    int           `json:"documents"`
	Skipped      int           `json:"skipped"`
	Terms        int           `json:"terms"`
	AvgDocLength float64       `json:"avg_doc_length"`
	Persisted    bool          `json:"persisted"`
	Duration     time.Duration `json:"duration_ns"`
	Message      string        `json:"message"`
}

// CollectionInfo is one row of Collections.
type CollectionInfo struct {
	Name         string     `json:"name"`
	Indexed      bool       `json:"indexed"`
	Documents    int        `json:"documents"`
	AvgDocLength float64    `json:"avg_doc_length"`
	HasSidecar   bool       `json:"has_sidecar"`
	BuiltAt      *time.Time `json:"built_at,omitempty"`
}

type entry struct {
	idx     *index.BM25Index
	builtAt time.Time
}

// Manager maps collection names to live indices. Indices are immutable once
// fitted, so searches run under a read lock while builds swap whole entries.
type Manager struct {
	opts     Options
	loader   *loader.Loader
	executor *executor.Executor

	mu      sync.RWMutex
	indices map[string]*entry
	group   singleflight.Group

	logger *slog.Logger
}

func NewManager(opts Options) (*Manager, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, fmt.Errorf("%w: collection root is required", pkgerrors.ErrInvalidInput)
	}
	if opts.Params == (ranker.Params{}) {
		opts.Params = ranker.DefaultParams()
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.SidecarName == "" {
		opts.SidecarName = segment.DefaultName
	}
	if opts.BuildConcurrency <= 0 {
		opts.BuildConcurrency = defaultBuildConcurrency
	}
	return &Manager{
		opts:     opts,
		loader:   loader.New(opts.Root, opts.Extensions),
		executor: executor.New(opts.PreviewLength),
		indices:  make(map[string]*entry),
		logger:   slog.Default().With("component", "collection-manager"),
	}, nil
}

// SidecarPath is where the persisted index of a collection lives.
func (m *Manager) SidecarPath(name string) string {
	return filepath.Join(m.loader.Dir(name), m.opts.SidecarName)
}

// Discover loads the sidecar of every collection that is not cached yet and
// returns how many were loaded. A sidecar that fails to load is logged and
// its collection stays unindexed.
func (m *Manager) Discover(ctx context.Context) (int, error) {
	names, err := m.loader.Collections()
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if _, ok := m.lookup(name); ok || !segment.Exists(m.SidecarPath(name)) {
			continue
		}
		if _, err := m.load(name); err != nil {
			m.logger.Warn("failed to load sidecar during discovery", "collection", name, "error", err)
			continue
		}
		loaded++
	}
	m.logger.Info("discovery complete", "collections", len(names), "loaded", loaded)
	return loaded, nil
}

// Build indexes every text file of the collection, persists the index and
// installs it, replacing any cached one. A sidecar write failure is logged
// and the index is still installed, with Persisted false in the report.
func (m *Manager) Build(ctx context.Context, name string) (*BuildReport, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	v, err, _ := m.group.Do("build:"+name, func() (any, error) {
		return m.build(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*BuildReport), nil
}

// Query searches one collection, loading or building its index first when
// it is not cached. Any failure yields an empty result.
func (m *Manager) Query(ctx context.Context, name, text string, topK int) []executor.Hit {
	start := time.Now()
	if topK <= 0 {
		return []executor.Hit{}
	}
	log := logger.FromContext(ctx).With("component", "collection-manager", "collection", name)

	if err := validateName(name); err != nil {
		log.Warn("rejected collection name", "error", err)
		m.observeQuery(ScopeCollection, "unavailable", start, 0)
		return []executor.Hit{}
	}
	idx, err := m.ensure(ctx, name)
	if err != nil {
		if pkgerrors.IsExpected(err) {
			log.Info("collection unavailable", "reason", err)
		} else {
			log.Warn("collection unavailable", "error", err)
		}
		m.observeQuery(ScopeCollection, "unavailable", start, 0)
		return []executor.Hit{}
	}

	hits, cacheHit := m.search(ctx, name, idx, text, topK)
	m.observeQuery(ScopeCollection, resultType(hits), start, len(hits))
	m.trackQuery(ScopeCollection, name, text, topK, hits, cacheHit, start)
	return hits
}

// QueryAll runs discovery, builds every collection still missing an index,
// queries all cached collections and merges the hits into one global top-k.
func (m *Manager) QueryAll(ctx context.Context, text string, topK int) []executor.Hit {
	start := time.Now()
	if topK <= 0 {
		return []executor.Hit{}
	}
	log := logger.FromContext(ctx).With("component", "collection-manager")

	if _, err := m.Discover(ctx); err != nil {
		log.Warn("discovery failed", "error", err)
	}
	m.buildMissing(ctx)

	m.mu.RLock()
	names := make([]string, 0, len(m.indices))
	for name := range m.indices {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)

	lists := make([][]executor.Hit, 0, len(names))
	anyCached := false
	for _, name := range names {
		e, ok := m.lookup(name)
		if !ok {
			continue
		}
		hits, cacheHit := m.search(ctx, name, e.idx, text, topK)
		anyCached = anyCached || cacheHit
		lists = append(lists, hits)
	}
	merged := merger.Merge(lists, topK)

	log.Debug("query across collections", "query", text, "collections", len(names), "results", len(merged))
	m.observeQuery(ScopeAll, resultType(merged), start, len(merged))
	m.trackQuery(ScopeAll, "", text, topK, merged, anyCached, start)
	return merged
}

// Collections reports every collection directory and every cached index, in
// name order.
func (m *Manager) Collections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := m.loader.Collections()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[name] = struct{}{}
	}
	m.mu.RLock()
	for name := range m.indices {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	m.mu.RUnlock()
	sort.Strings(names)

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		info := CollectionInfo{
			Name:       name,
			HasSidecar: segment.Exists(m.SidecarPath(name)),
		}
		if e, ok := m.lookup(name); ok {
			info.Indexed = true
			info.Documents = e.idx.DocCount()
			info.AvgDocLength = e.idx.AvgDocLength()
			if !e.builtAt.IsZero() {
				builtAt := e.builtAt
				info.BuiltAt = &builtAt
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Cached reports whether an index for name is held in memory.
func (m *Manager) Cached(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

func (m *Manager) build(ctx context.Context, name string) (*BuildReport, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("component", "collection-manager", "collection", name)

	res, err := m.loader.Load(name)
	if err != nil {
		skipped := 0
		if res != nil {
			skipped = res.Skipped
		}
		m.buildFailed(name, err, skipped, start)
		return nil, err
	}

	idx := index.Fit(m.opts.Params, res.Documents)
	builtAt := time.Now().UTC()
	persisted := true
	if err := segment.Save(m.SidecarPath(name), idx); err != nil {
		log.Error("failed to persist index", "path", m.SidecarPath(name), "error", err)
		persisted = false
	}
	m.install(name, idx, builtAt)

	if m.opts.Cache != nil {
		if err := m.opts.Cache.Invalidate(ctx, name); err != nil {
			log.Warn("failed to invalidate query cache", "error", err)
		}
	}

	report := &BuildReport{
		Collection:   name,
		Documents:    idx.DocCount(),
		Skipped:      res.Skipped,
		Terms:        idx.Terms(),
		AvgDocLength: idx.AvgDocLength(),
		Persisted:    persisted,
		Duration:     time.Since(start),
		Message:      fmt.Sprintf("Indexed %d chapters.", idx.DocCount()),
	}
	log.Info("index built",
		"documents", report.Documents,
		"skipped", report.Skipped,
		"terms", report.Terms,
		"avgdl", report.AvgDocLength,
		"persisted", persisted,
		"duration", report.Duration,
	)

	if m.opts.Metrics != nil {
		m.opts.Metrics.IndexBuildsTotal.WithLabelValues("ok").Inc()
		m.opts.Metrics.IndexBuildDuration.Observe(report.Duration.Seconds())
		m.opts.Metrics.DocsIndexedTotal.Add(float64(report.Documents))
	}
	event := analytics.BuildEvent{
		Type:         analytics.EventIndexBuilt,
		Collection:   name,
		Documents:    report.Documents,
		Skipped:      report.Skipped,
		Terms:        report.Terms,
		AvgDocLength: report.AvgDocLength,
		Persisted:    persisted,
		LatencyMs:    report.Duration.Milliseconds(),
		Timestamp:    builtAt,
	}
	if m.opts.Events != nil {
		m.opts.Events.Track(name, event)
	}
	if m.opts.History != nil {
		if err := m.opts.History.RecordBuild(ctx, event); err != nil {
			log.Warn("failed to record build history", "error", err)
		}
	}
	return report, nil
}

func (m *Manager) buildFailed(name string, err error, skipped int, start time.Time) {
	status := "error"
	switch {
	case errors.Is(err, pkgerrors.ErrCollectionNotFound):
		status = "not_found"
	case errors.Is(err, pkgerrors.ErrNoDocuments):
		status = "no_documents"
	}
	if pkgerrors.IsExpected(err) {
		m.logger.Info("index not built", "collection", name, "reason", err)
	} else {
		m.logger.Error("index build failed", "collection", name, "error", err)
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
	if m.opts.Events != nil {
		m.opts.Events.Track(name, analytics.BuildEvent{
			Type:       analytics.EventIndexFailed,
			Collection: name,
			Skipped:    skipped,
			Reason:     err.Error(),
			LatencyMs:  time.Since(start).Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
}

// ensure returns the cached index of name, loading its sidecar or building
// it when absent. Concurrent callers for the same name share one attempt.
func (m *Manager) ensure(ctx context.Context, name string) (*index.BM25Index, error) {
	if e, ok := m.lookup(name); ok {
		return e.idx, nil
	}
	v, err, _ := m.group.Do("ensure:"+name, func() (any, error) {
		if e, ok := m.lookup(name); ok {
			return e.idx, nil
		}
		if segment.Exists(m.SidecarPath(name)) {
			idx, err := m.load(name)
			if err == nil {
				return idx, nil
			}
			m.logger.Warn("unusable sidecar, rebuilding", "collection", name, "error", err)
		}
		if _, err := m.Build(ctx, name); err != nil {
			return nil, err
		}
		e, ok := m.lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s built but not cached", pkgerrors.ErrInternal, name)
		}
		return e.idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.BM25Index), nil
}

func (m *Manager) load(name string) (*index.BM25Index, error) {
	path := m.SidecarPath(name)
	idx, header, err := segment.Load(path)
	if err != nil {
		if m.opts.Metrics != nil {
			m.opts.Metrics.IndexLoadsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	builtAt := header.BuiltAt
	if builtAt.IsZero() {
		if info, statErr := os.Stat(path); statErr == nil {
			builtAt = info.ModTime().UTC()
		}
	}
	m.install(name, idx, builtAt)
	if m.opts.Metrics != nil {
		m.opts.Metrics.IndexLoadsTotal.WithLabelValues("ok").Inc()
	}
	m.logger.Info("index loaded", "collection", name, "schema", header.Version, "documents", idx.DocCount())
	return idx, nil
}

// buildMissing builds, with bounded concurrency, every collection directory
// that has no cached index.
func (m *Manager) buildMissing(ctx context.Context) {
	names, err := m.loader.Collections()
	if err != nil {
		m.logger.Warn("listing collections failed", "error", err)
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.BuildConcurrency)
	for _, name := range names {
		if _, ok := m.lookup(name); ok {
			continue
		}
		g.Go(func() error {
			// Failures are logged by build and must not cancel siblings.
			m.Build(gctx, name)
			return nil
		})
	}
	g.Wait()
}

func (m *Manager) search(ctx context.Context, name string, idx *index.BM25Index, text string, topK int) ([]executor.Hit, bool) {
	compute := func() []executor.Hit {
		return m.executor.Execute(idx, name, text, topK)
	}
	if m.opts.Cache == nil {
		return compute(), false
	}
	hits, hit := m.opts.Cache.GetOrCompute(ctx, name, text, topK, compute)
	if m.opts.Metrics != nil {
		if hit {
			m.opts.Metrics.CacheHitsTotal.Inc()
		} else {
			m.opts.Metrics.CacheMissesTotal.Inc()
		}
	}
	return hits, hit
}

func (m *Manager) lookup(name string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.indices[name]
	return e, ok
}

func (m *Manager) install(name string, idx *index.BM25Index, builtAt time.Time) {
	m.mu.Lock()
	m.indices[name] = &entry{idx: idx, builtAt: builtAt}
	n := len(m.indices)
	m.mu.Unlock()
	if m.opts.Metrics != nil {
		m.opts.Metrics.CachedCollections.Set(float64(n))
	}
}

func (m *Manager) observeQuery(scope, result string, start time.Time, n int) {
	if m.opts.Metrics == nil {
		return
	}
	m.opts.Metrics.MemoryQueriesTotal.WithLabelValues(scope, result).Inc()
	m.opts.Metrics.MemoryQueryLatency.WithLabelValues(scope).Observe(time.Since(start).Seconds())
	if result != "unavailable" {
		m.opts.Metrics.MemoryResultsCount.Observe(float64(n))
	}
}

func (m *Manager) trackQuery(scope, name, text string, topK int, hits []executor.Hit, cacheHit bool, start time.Time) {
	if m.opts.Events == nil {
		return
	}
	eventType := analytics.EventQuery
	if len(hits) == 0 {
		eventType = analytics.EventZeroResult
	}
	key := name
	if key == "" {
		key = scope
	}
	m.opts.Events.Track(key, analytics.QueryEvent{
		Type:       eventType,
		Scope:      scope,
		Collection: name,
		Query:      text,
		TopK:       topK,
		Returned:   len(hits),
		CacheHit:   cacheHit,
		LatencyMs:  time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
}

func resultType(hits []executor.Hit) string {
	if len(hits) == 0 {
		return "zero_result"
	}
	return "hit"
}

// validateName accepts a single path segment so a name can never escape the
// root.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: collection name is empty", pkgerrors.ErrInvalidInput)
	case name == "." || name == "..":
		return fmt.Errorf("%w: collection name %q", pkgerrors.ErrInvalidInput, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: collection name %q contains a path separator", pkgerrors.ErrInvalidInput, name)
	}
	return nil
}
