// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MINIRAG_* runtime override)
//  2. Config file (./config.yaml or ~/.minirag/config.yaml)
//  3. Default values
//
// Main categories:
//   - Generation/Embedding backends: provider selection and model identifiers
//   - Retrieval: vector store backend and top-k limit
//   - Storage: PostgreSQL connection for the vector index and chat history
//   - HTTP: listen address for the API server
//
// Sensitive fields (passwords, API keys) are masked in MarshalJSON.
// Validation lives in validation.go and returns sentinel errors usable
// with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Backend identifiers used in Config.GenerationBackend and Config.EmbeddingBackend.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Vector store backend identifiers used in Config.VectorBackend.
const (
	VectorBackendPgvector = "pgvector"
	VectorBackendMemory   = "memory"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Provider selection
	GenerationBackend string `mapstructure:"generation_backend" json:"generation_backend"` // "openai" or "ollama"
	EmbeddingBackend  string `mapstructure:"embedding_backend" json:"embedding_backend"`   // "openai" or "ollama"

	// Model configuration
	GenerationModelID string  `mapstructure:"generation_model_id" json:"generation_model_id"`
	EmbeddingModelID  string  `mapstructure:"embedding_model_id" json:"embedding_model_id"`
	EmbeddingSize     int     `mapstructure:"embedding_size" json:"embedding_size"`
	InputMaxChars     int     `mapstructure:"input_max_characters" json:"input_max_characters"`
	MaxOutputTokens   int     `mapstructure:"max_output_tokens" json:"max_output_tokens"`
	Temperature       float32 `mapstructure:"temperature" json:"temperature"`
	TopK              int     `mapstructure:"top_k" json:"top_k"`
	TopP              float32 `mapstructure:"top_p" json:"top_p"`

	// Prompt templates
	Language        string `mapstructure:"language" json:"language"`
	DefaultLanguage string `mapstructure:"default_language" json:"default_language"`

	// Remote provider (openai backend)
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	// Local provider (ollama backend)
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Retrieval
	VectorBackend  string `mapstructure:"vector_backend" json:"vector_backend"` // "pgvector" or "memory"
	TopSimilarityK int    `mapstructure:"top_similarity_k" json:"top_similarity_k"`

	// Ingestion
	DocsDir      string `mapstructure:"docs_dir" json:"docs_dir"`
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Observability (empty = tracing disabled)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".minirag"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* fields.
	if err := cfg.applyDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("generation_backend", BackendOllama)
	v.SetDefault("embedding_backend", BackendOllama)
	v.SetDefault("generation_model_id", "llama3.1")
	v.SetDefault("embedding_model_id", "nomic-embed-text")
	v.SetDefault("embedding_size", 384)
	v.SetDefault("input_max_characters", 1024)
	v.SetDefault("max_output_tokens", 1024)
	v.SetDefault("temperature", 0.1)
	v.SetDefault("top_k", 10)
	v.SetDefault("top_p", 0.95)

	v.SetDefault("language", "en")
	v.SetDefault("default_language", "en")

	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("vector_backend", VectorBackendPgvector)
	v.SetDefault("top_similarity_k", 5)

	v.SetDefault("docs_dir", "data/docs")
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "minirag")
	v.SetDefault("postgres_db_name", "minirag")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("http_addr", "127.0.0.1:5000")
	v.SetDefault("environment", "dev")
}

func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("MINIRAG")
	v.AutomaticEnv()

	// API keys are conventionally read from unprefixed variables too.
	_ = v.BindEnv("openai_api_key", "MINIRAG_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("ollama_host", "MINIRAG_OLLAMA_HOST", "OLLAMA_HOST")
}

// applyDatabaseURL parses a postgres:// URL into the individual fields.
// Empty input is a no-op.
func (c *Config) applyDatabaseURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("%w: DATABASE_URL scheme %q", ErrInvalidPostgresHost, u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("%w: DATABASE_URL port %q", ErrInvalidPostgresPort, p)
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := filepath.Base(u.Path); db != "." && db != "/" {
		c.PostgresDBName = db
	}
	if ssl := u.Query().Get("sslmode"); ssl != "" {
		c.PostgresSSLMode = ssl
	}
	return nil
}

// DatabaseURL returns the postgres:// connection URL for the configured storage.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // drop methods to avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "********"
	}
	return json.Marshal(masked)
}
