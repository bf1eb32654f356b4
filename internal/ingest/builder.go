package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/vectorstore"
)

// lockRetryDelay is the poll interval while waiting for the build lock.
const lockRetryDelay = 250 * time.Millisecond

// Embedder turns chunk text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Builder runs one index build: load, chunk, embed, store. A file lock
// serializes builds across processes so two ingest runs never interleave
// writes to the same index.
type Builder struct {
	loader   Loader
	chunker  *Chunker
	embedder Embedder
	store    vectorstore.Store
	lockPath string
	logger   log.Logger
}

// BuilderConfig wires a Builder.
type BuilderConfig struct {
	Loader   Loader
	Chunker  *Chunker
	Embedder Embedder
	Store    vectorstore.Store
	// LockPath is the lock file guarding the build. Empty uses a file
	// in the system temp directory.
	LockPath string
}

// NewBuilder creates a Builder.
func NewBuilder(cfg BuilderConfig, logger log.Logger) (*Builder, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	lockPath := cfg.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "minirag-ingest.lock")
	}
	return &Builder{
		loader:   cfg.Loader,
		chunker:  cfg.Chunker,
		embedder: cfg.Embedder,
		store:    cfg.Store,
		lockPath: lockPath,
		logger:   logger,
	}, nil
}

// Build ingests all documents the loader produces. It blocks until the
// build lock is acquired or ctx is done. Returns the number of chunks
// stored.
func (b *Builder) Build(ctx context.Context) (int, error) {
	lock := flock.New(b.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquiring build lock %s: %w", b.lockPath, err)
	}
	if !locked {
		return 0, fmt.Errorf("build lock %s held by another process", b.lockPath)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			b.logger.Warn("releasing build lock", "error", unlockErr)
		}
	}()

	docs, err := b.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading documents: %w", err)
	}
	b.logger.Info("loaded documents", "count", len(docs))

	var total int
	for _, doc := range docs {
		stored, err := b.ingestDocument(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("ingesting %s: %w", doc.ID, err)
		}
		total += stored
	}

	b.logger.Info("index build completed", "documents", len(docs), "chunks", total)
	return total, nil
}

// ingestDocument chunks, embeds and stores one document.
func (b *Builder) ingestDocument(ctx context.Context, doc SourceDocument) (int, error) {
	chunks := b.chunker.Chunk(doc)
	if len(chunks) == 0 {
		b.logger.Warn("document produced no chunks", "document", doc.ID)
		return 0, nil
	}

	storeDocs := make([]vectorstore.Document, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := b.embedder.EmbedText(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %s: %w", chunk.ID, err)
		}
		storeDocs = append(storeDocs, vectorstore.Document{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		})
		embeddings = append(embeddings, embedding)
	}

	if err := b.store.Add(ctx, storeDocs, embeddings); err != nil {
		return 0, fmt.Errorf("storing %d chunks: %w", len(storeDocs), err)
	}

	b.logger.Debug("ingested document", "document", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}
