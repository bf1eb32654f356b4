package llm

import (
	"fmt"
	"time"

	"github.com/minirag/minirag/internal/log"
)

// Backend identifiers accepted by New.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// FactoryConfig carries everything needed to construct any provider variant.
type FactoryConfig struct {
	// APIKey and BaseURL configure the openai backend.
	APIKey  string
	BaseURL string

	// Host configures the ollama backend.
	Host string

	// Timeout bounds provider HTTP calls. Zero uses variant defaults.
	Timeout time.Duration

	// Settings are the generation tuning defaults shared by all variants.
	Settings Settings
}

// New creates a Provider for the given backend name.
// Unknown backends fail with ErrConfiguration.
func New(backend string, cfg FactoryConfig, logger log.Logger) (Provider, error) {
	switch backend {
	case BackendOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			Settings: cfg.Settings,
		}, logger)
	case BackendOllama:
		return NewOllama(OllamaConfig{
			Host:     cfg.Host,
			Timeout:  cfg.Timeout,
			Settings: cfg.Settings,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfiguration, backend)
	}
}
