package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/minirag/minirag/internal/app"
	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/log"
)

// parseIngestDir resolves the document directory from command line
// arguments, falling back to the configured default.
func parseIngestDir(defaultDir string) string {
	if len(os.Args) > 2 && !strings.HasPrefix(os.Args[2], "-") {
		return os.Args[2]
	}
	return defaultDir
}

// runIngest builds the vector index from a document directory.
func runIngest(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	dir := parseIngestDir(cfg.DocsDir)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("document directory %q: %w", dir, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	builder, err := a.CreateBuilder(dir)
	if err != nil {
		return fmt.Errorf("creating index builder: %w", err)
	}

	logger.Info("building vector index",
		"dir", dir,
		"chunk_size", cfg.ChunkSize,
		"chunk_overlap", cfg.ChunkOverlap,
	)

	chunks, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	logger.Info("vector index built", "chunks", chunks)
	fmt.Printf("Indexed %d chunks from %s\n", chunks, dir)
	return nil
}
