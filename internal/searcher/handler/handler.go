// Package handler exposes the collection manager over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/middleware"
)

// Memory is the part of collection.Manager the handler needs.
type Memory interface {
	Build(ctx context.Context, name string) (*collection.BuildReport, error)
	Query(ctx context.Context, name, text string, topK int) []executor.Hit
	QueryAll(ctx context.Context, text string, topK int) []executor.Hit
	Collections(ctx context.Context) ([]collection.CollectionInfo, error)
}

// SearchResponse is the body of both search routes.
type SearchResponse struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection,omitempty"`
	Limit      int            `json:"limit"`
	Results    []executor.Hit `json:"results"`
	LatencyMs  int64          `json:"latency_ms"`
	RequestID  string         `json:"request_id,omitempty"`
}

// BuildResponse is the body of the build route. On failure OK is false and
// Reason carries the cause.
type BuildResponse struct {
	OK     bool                    `json:"ok"`
	Reason string                  `json:"reason,omitempty"`
	Report *collection.BuildReport `json:"report,omitempty"`
}

type Handler struct {
	memory       Memory
	cache        *cache.QueryCache
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(memory Memory, queryCache *cache.QueryCache, defaultLimit, maxResults int) *Handler {
	return &Handler{
		memory:       memory,
		cache:        queryCache,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "memory-handler"),
	}
}

// Register mounts every route on mux. buildMW wraps only the build route.
func (h *Handler) Register(mux *http.ServeMux, buildMW ...func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/v1/collections", h.ListCollections)
	mux.Handle("POST /api/v1/collections/{name}/build", middleware.Chain(http.HandlerFunc(h.Build), buildMW...))
	mux.HandleFunc("GET /api/v1/collections/{name}/search", h.SearchCollection)
	mux.HandleFunc("GET /api/v1/search", h.SearchAll)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
}

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := h.memory.Collections(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("listing collections failed", "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), "listing collections failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"collections": infos})
}

func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	report, err := h.memory.Build(r.Context(), name)
	if err != nil {
		status := pkgerrors.HTTPStatusCode(err)
		if !pkgerrors.IsExpected(err) && !errors.Is(err, pkgerrors.ErrInvalidInput) {
			logger.FromContext(r.Context()).Error("build failed", "collection", name, "error", err)
		}
		h.writeJSON(w, status, BuildResponse{OK: false, Reason: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, BuildResponse{OK: true, Report: report})
}

func (h *Handler) SearchCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.search(w, r, name, func(ctx context.Context, q string, limit int) []executor.Hit {
		return h.memory.Query(ctx, name, q, limit)
	})
}

func (h *Handler) SearchAll(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "", func(ctx context.Context, q string, limit int) []executor.Hit {
		return h.memory.QueryAll(ctx, q, limit)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, name string, run func(context.Context, string, int) []executor.Hit) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A blank query matches nothing.
	hits := []executor.Hit{}
	if strings.TrimSpace(query) != "" {
		hits = run(ctx, query, limit)
	}
	latencyMs := time.Since(start).Milliseconds()
	logger.FromContext(ctx).Info("memory search completed",
		"collection", name,
		"query", query,
		"returned", len(hits),
		"latency_ms", latencyMs,
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:      query,
		Collection: name,
		Limit:      limit,
		Results:    hits,
		LatencyMs:  latencyMs,
		RequestID:  middleware.GetRequestID(ctx),
	})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if parsed > h.maxResults {
		parsed = h.maxResults
	}
	return parsed, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
