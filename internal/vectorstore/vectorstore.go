// Package vectorstore provides similarity search over embedded document
// chunks. Two backends are available: a pgvector-backed store for
// production and an in-memory brute-force store for small corpora and
// tests. Both rank by cosine similarity, higher score first; callers
// treat the returned order as authoritative.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/internal/log"
)

// Backend identifiers accepted by New.
const (
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Document is one retrieved chunk. Score is the cosine similarity to
// the query embedding, in [-1, 1], higher is more similar. Score is
// only populated on Query results.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// Store is the similarity search surface consumed by retrieval and
// ingestion.
type Store interface {
	// Query returns up to limit documents ranked by similarity to the
	// embedding, best first. An empty result is not an error.
	Query(ctx context.Context, embedding []float32, limit int) ([]Document, error)

	// Add stores documents with their embeddings. docs and embeddings
	// are parallel slices. Existing IDs are overwritten.
	Add(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// Config selects and configures a Store backend.
type Config struct {
	// Backend is BackendPgvector or BackendMemory.
	Backend string

	// Pool is required for the pgvector backend.
	Pool *pgxpool.Pool

	// EmbeddingSize is the expected vector dimensionality.
	EmbeddingSize int
}

// New creates a Store for the configured backend.
func New(cfg Config, logger log.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendPgvector:
		return NewPostgres(cfg.Pool, logger)
	case BackendMemory:
		return NewMemory(cfg.EmbeddingSize), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}
