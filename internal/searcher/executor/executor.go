// Package executor runs a query against one collection's index and shapes
// the matches into preview records for callers.
package executor

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
)

const (
	DefaultPreviewLength = 200
	truncationMarker     = "..."
)

// Hit is the caller-facing record for one matched document.
type Hit struct {
	Score      float64 `json:"score"`
	Collection string  `json:"collection"`
	Filename   string  `json:"filename"`
	Path       string  `json:"path"`
	Preview    string  `json:"preview"`
	// Rank is the hit's zero-based position within its collection.
	Rank int `json:"rank"`
}

// Searcher is the read side of a fitted index.
type Searcher interface {
	Search(query string, topK int) []index.ScoredDocument
}

type Executor struct {
	previewLength int
	logger        *slog.Logger
}

func New(previewLength int) *Executor {
	if previewLength <= 0 {
		previewLength = DefaultPreviewLength
	}
	return &Executor{
		previewLength: previewLength,
		logger:        slog.Default().With("component", "query-executor"),
	}
}

// Execute searches idx and converts the matches into hits tagged with
// collection.
func (e *Executor) Execute(idx Searcher, collection, query string, topK int) []Hit {
	matches := idx.Search(query, topK)
	hits := make([]Hit, 0, len(matches))
	for rank, m := range matches {
		hits = append(hits, Hit{
			Score:      m.Score,
			Collection: collection,
			Filename:   m.Document.Meta.Filename,
			Path:       m.Document.Meta.Path,
			Preview:    Preview(m.Document.Content, e.previewLength),
			Rank:       rank,
		})
	}
	e.logger.Debug("query executed",
		"collection", collection,
		"query", query,
		"top_k", topK,
		"results", len(hits),
	)
	return hits
}

// Preview returns the first n runes of content followed by a truncation
// marker.
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + truncationMarker
}
