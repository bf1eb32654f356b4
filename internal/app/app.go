// Package app assembles the application: configuration, database pool,
// model providers, template engine, vector store, chat log and the
// answer orchestrator, with a single Close for teardown.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/ingest"
	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/rag"
	"github.com/minirag/minirag/internal/template"
	"github.com/minirag/minirag/internal/vectorstore"
)

// closeTimeout bounds the trace flush during shutdown.
const closeTimeout = 5 * time.Second

// App holds the initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool       *pgxpool.Pool
	Provider     llm.Provider
	Templates    *template.Engine
	Vectors      vectorstore.Store
	Orchestrator *rag.Orchestrator

	otelShutdown func(context.Context) error
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var firstErr error
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("trace flush failed", "error", err)
			firstErr = err
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}

	return firstErr
}

// CreateBuilder creates an index builder reading documents from docsDir.
// Chunking parameters come from the configuration.
func (a *App) CreateBuilder(docsDir string) (*ingest.Builder, error) {
	return ingest.NewBuilder(ingest.BuilderConfig{
		Loader:   ingest.NewDirLoader(docsDir),
		Chunker:  ingest.NewChunker(a.Config.ChunkSize, a.Config.ChunkOverlap),
		Embedder: a.Provider,
		Store:    a.Vectors,
	}, a.Logger)
}
