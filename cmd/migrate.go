package cmd

import (
	"fmt"

	"github.com/minirag/minirag/db"
	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/log"
)

// runMigrate applies pending database migrations and exits.
func runMigrate(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if cfg.VectorBackend == config.VectorBackendMemory {
		return fmt.Errorf("migrate requires the pgvector backend, vector_backend is %q", cfg.VectorBackend)
	}

	if err := db.Migrate(cfg.DatabaseURL(), logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations applied")
	return nil
}
