package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Schema creates the table HistoryStore writes to.
const Schema = `CREATE TABLE IF NOT EXISTS memory_index_builds (
    id             BIGSERIAL PRIMARY KEY,
    collection     TEXT NOT NULL,
    documents      INTEGER NOT NULL,
    skipped        INTEGER NOT NULL,
    terms          INTEGER NOT NULL,
    avg_doc_length DOUBLE PRECISION NOT NULL,
    persisted      BOOLEAN NOT NULL,
    latency_ms     BIGINT NOT NULL,
    built_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// HistoryStore persists successful index builds in PostgreSQL.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{
		db:     db,
		logger: slog.Default().With("component", "build-history"),
	}
}

func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating build history table: %w", err)
	}
	return nil
}

// RecordBuild inserts one history row.
func (s *HistoryStore) RecordBuild(ctx context.Context, event BuildEvent) error {
	builtAt := event.Timestamp
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_index_builds
		   (collection, documents, skipped, terms, avg_doc_length, persisted, latency_ms, built_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Collection, event.Documents, event.Skipped, event.Terms,
		event.AvgDocLength, event.Persisted, event.LatencyMs, builtAt,
	)
	if err != nil {
		return fmt.Errorf("saving build of %s: %w", event.Collection, err)
	}
	s.logger.Debug("build recorded", "collection", event.Collection, "documents", event.Documents)
	return nil
}

// LatestBuild returns the most recent build of collection, or nil, nil if
// it has never been built.
func (s *HistoryStore) LatestBuild(ctx context.Context, collection string) (*BuildEvent, error) {
	var e BuildEvent
	err := s.db.QueryRowContext(ctx,
		`SELECT collection, documents, skipped, terms, avg_doc_length, persisted, latency_ms, built_at
		   FROM memory_index_builds WHERE collection = $1
		  ORDER BY built_at DESC LIMIT 1`,
		collection,
	).Scan(&e.Collection, &e.Documents, &e.Skipped, &e.Terms, &e.AvgDocLength, &e.Persisted, &e.LatencyMs, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest build of %s: %w", collection, err)
	}
	e.Type = EventIndexBuilt
	return &e, nil
}
