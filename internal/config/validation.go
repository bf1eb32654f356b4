package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBackend indicates an unsupported generation or embedding backend.
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelID indicates a missing or invalid model identifier.
	ErrInvalidModelID = errors.New("invalid model id")

	// ErrInvalidEmbeddingSize indicates the embedding dimensionality is out of range.
	ErrInvalidEmbeddingSize = errors.New("invalid embedding size")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max output tokens")

	// ErrInvalidTopSimilarityK indicates the retrieval limit is out of range.
	ErrInvalidTopSimilarityK = errors.New("invalid top similarity k")

	// ErrInvalidVectorBackend indicates an unsupported vector store backend.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	validBackends := []string{BackendOpenAI, BackendOllama}
	if !slices.Contains(validBackends, c.GenerationBackend) {
		return fmt.Errorf("%w: generation_backend %q, must be one of: %v",
			ErrInvalidBackend, c.GenerationBackend, validBackends)
	}
	if !slices.Contains(validBackends, c.EmbeddingBackend) {
		return fmt.Errorf("%w: embedding_backend %q, must be one of: %v",
			ErrInvalidBackend, c.EmbeddingBackend, validBackends)
	}

	if (c.GenerationBackend == BackendOpenAI || c.EmbeddingBackend == BackendOpenAI) && c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai backend", ErrMissingAPIKey)
	}

	if c.GenerationModelID == "" {
		return fmt.Errorf("%w: generation_model_id cannot be empty", ErrInvalidModelID)
	}
	if c.EmbeddingModelID == "" {
		return fmt.Errorf("%w: embedding_model_id cannot be empty", ErrInvalidModelID)
	}

	// Dimensionality must match the vector column in the index schema;
	// a mismatch degrades similarity search silently.
	if c.EmbeddingSize < 1 || c.EmbeddingSize > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d", ErrInvalidEmbeddingSize, c.EmbeddingSize)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxOutputTokens < 1 || c.MaxOutputTokens > 1<<20 {
		return fmt.Errorf("%w: must be between 1 and 1,048,576, got %d", ErrInvalidMaxTokens, c.MaxOutputTokens)
	}

	if c.TopSimilarityK < 1 || c.TopSimilarityK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopSimilarityK, c.TopSimilarityK)
	}

	validVectorBackends := []string{VectorBackendPgvector, VectorBackendMemory}
	if !slices.Contains(validVectorBackends, c.VectorBackend) {
		return fmt.Errorf("%w: %q, must be one of: %v",
			ErrInvalidVectorBackend, c.VectorBackend, validVectorBackends)
	}

	if c.VectorBackend == VectorBackendPgvector {
		if err := c.validatePostgres(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only; allow/prefer are deprecated.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}
	return nil
}
