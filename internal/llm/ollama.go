package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minirag/minirag/internal/log"
)

const (
	ollamaDefaultHost = "http://localhost:11434"
	// Local generation can be slow on CPU-only machines.
	ollamaDefaultTimeout = 5 * time.Minute
)

// Ollama is the local-inference Provider variant. Models are resident on
// the local Ollama server; no data leaves the machine.
type Ollama struct {
	host       string
	httpClient *http.Client
	settings   Settings
	logger     log.Logger

	generationModelID string
	embeddingModelID  string
	embeddingSize     int
}

// OllamaConfig configures the local provider.
type OllamaConfig struct {
	// Host is the Ollama server address (default: http://localhost:11434).
	Host string
	// Timeout bounds each HTTP call (default: 5m).
	Timeout time.Duration
	// Settings are the generation tuning defaults.
	Settings Settings
}

// NewOllama creates the local-inference provider variant.
func NewOllama(cfg OllamaConfig, logger log.Logger) (*Ollama, error) {
	host := cfg.Host
	if host == "" {
		host = ollamaDefaultHost
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = ollamaDefaultTimeout
	}
	return &Ollama{
		host:       strings.TrimSuffix(host, "/"),
		httpClient: &http.Client{Timeout: timeout},
		settings:   cfg.Settings,
		logger:     logger,
	}, nil
}

// SetGenerationModel selects the local generation model.
func (p *Ollama) SetGenerationModel(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("%w: generation model id is empty", ErrConfiguration)
	}
	p.generationModelID = modelID
	return nil
}

// SetEmbeddingModel selects the local embedding model.
func (p *Ollama) SetEmbeddingModel(modelID string, embeddingSize int) error {
	if modelID == "" {
		return fmt.Errorf("%w: embedding model id is empty", ErrConfiguration)
	}
	if embeddingSize < 1 {
		return fmt.Errorf("%w: embedding size %d", ErrConfiguration, embeddingSize)
	}
	p.embeddingModelID = modelID
	p.embeddingSize = embeddingSize
	return nil
}

// ConstructPrompt builds a message, truncating content to the input budget.
func (p *Ollama) ConstructPrompt(role, content, fullPrompt string) Message {
	return constructPrompt(role, content, fullPrompt, p.settings.InputMaxChars)
}

// CleanMessages strips non-wire fields from every message.
func (p *Ollama) CleanMessages(messages []Message) []Message {
	return cleanMessages(messages)
}

// Wire types for the Ollama HTTP API.
type ollamaChatRequest struct {
	Model    string            `json:"model"`
	Messages []Message         `json:"messages"`
	Stream   bool              `json:"stream"`
	Options  ollamaChatOptions `json:"options"`
}

type ollamaChatOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// GenerateText sends prompt plus history to the local chat endpoint.
// The prompt is appended as a user message to a copy of history.
func (p *Ollama) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) (string, error) {
	if p.generationModelID == "" {
		return "", fmt.Errorf("%w: generation model not set", ErrGeneration)
	}

	o := buildGenerateOptions(p.settings, opts)

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, p.ConstructPrompt(RoleUser, prompt, ""))

	reqBody := ollamaChatRequest{
		Model:    p.generationModelID,
		Messages: p.CleanMessages(messages),
		Stream:   false,
		Options: ollamaChatOptions{
			NumPredict:  *o.maxOutputTokens,
			Temperature: *o.temperature,
			TopK:        *o.topK,
			TopP:        *o.topP,
		},
	}

	var resp ollamaChatResponse
	if err := p.post(ctx, "/api/chat", reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion returned", ErrGeneration)
	}
	return resp.Message.Content, nil
}

// EmbedText embeds text via the local embeddings endpoint and verifies
// the returned dimensionality against the configured embedding size.
func (p *Ollama) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if p.embeddingModelID == "" {
		return nil, fmt.Errorf("%w: embedding model not set", ErrEmbedding)
	}

	reqBody := ollamaEmbeddingRequest{Model: p.embeddingModelID, Prompt: text}

	var resp ollamaEmbeddingResponse
	if err := p.post(ctx, "/api/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbedding)
	}
	if len(resp.Embedding) != p.embeddingSize {
		return nil, fmt.Errorf("%w: embedding model %q returned %d dimensions, configured %d",
			ErrConfiguration, p.embeddingModelID, len(resp.Embedding), p.embeddingSize)
	}
	return resp.Embedding, nil
}

// post sends a JSON request to the local server and decodes the response.
// No retries: the server is local, failures are not transient network issues.
func (p *Ollama) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ollamaErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("ollama error [%d]: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("ollama error [%d]: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
