package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/db"
	"github.com/minirag/minirag/internal/chatlog"
	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/database"
	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/observability"
	"github.com/minirag/minirag/internal/rag"
	"github.com/minirag/minirag/internal/template"
	"github.com/minirag/minirag/internal/vectorstore"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup, call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelShutdown = provideTracing(ctx, cfg, logger)

	// The memory backend runs without Postgres: documents and chat
	// history live in process memory and vanish on restart.
	var (
		pool    *pgxpool.Pool
		history rag.HistoryStore
		err     error
	)
	if cfg.VectorBackend == config.VectorBackendMemory {
		logger.Warn("memory backend selected, documents and chat history are not persisted")
		history = chatlog.NewMemory()
	} else {
		pool, err = provideDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.DBPool = pool

		history, err = chatlog.New(pool, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chat log store: %w", err)
		}
	}

	provider, err := provideProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Provider = provider

	templates, err := provideTemplates(cfg)
	if err != nil {
		return nil, err
	}
	a.Templates = templates

	vectors, err := vectorstore.New(vectorstore.Config{
		Backend:       cfg.VectorBackend,
		Pool:          pool,
		EmbeddingSize: cfg.EmbeddingSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	a.Vectors = vectors

	orchestrator, err := rag.New(provider, vectors, history, templates, logger)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orchestrator

	return a, nil
}

// provideTracing sets up OTLP trace export. Tracing is optional: an
// empty endpoint disables it and returns a no-op shutdown.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func(context.Context) error {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }
	}

	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		CollectorHost: cfg.OTLPEndpoint,
		Environment:   cfg.Environment,
		ServiceName:   "minirag",
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without tracing", "error", err)
		return func(context.Context) error { return nil }
	}
	return shutdown
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	connURL := cfg.DatabaseURL()

	if err := db.Migrate(connURL, logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return pool, nil
}

// provideProvider builds the model provider surface. Generation and
// embedding may use different backends; both resolve through the same
// factory and are composed into one Provider value.
func provideProvider(cfg *config.Config, logger log.Logger) (llm.Provider, error) {
	factoryCfg := llm.FactoryConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Host:    cfg.OllamaHost,
		Settings: llm.Settings{
			InputMaxChars:   cfg.InputMaxChars,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TopK:            cfg.TopK,
			TopP:            cfg.TopP,
		},
	}

	generation, err := llm.New(cfg.GenerationBackend, factoryCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generation backend: %w", err)
	}
	if err := generation.SetGenerationModel(cfg.GenerationModelID); err != nil {
		return nil, fmt.Errorf("selecting generation model: %w", err)
	}

	embedding := generation
	if cfg.EmbeddingBackend != cfg.GenerationBackend {
		embedding, err = llm.New(cfg.EmbeddingBackend, factoryCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating embedding backend: %w", err)
		}
	}
	if err := embedding.SetEmbeddingModel(cfg.EmbeddingModelID, cfg.EmbeddingSize); err != nil {
		return nil, fmt.Errorf("selecting embedding model: %w", err)
	}

	return llm.Compose(generation, embedding), nil
}

// provideTemplates builds the prompt template engine and verifies the
// required template set resolves for the configured locale chain.
func provideTemplates(cfg *config.Config) (*template.Engine, error) {
	engine := template.NewWithFallback(cfg.Language, cfg.DefaultLanguage)
	if err := engine.ValidateRequired(); err != nil {
		return nil, fmt.Errorf("validating prompt templates: %w", err)
	}
	return engine, nil
}
