package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minirag/minirag/internal/log"
)

// OpenAI default tuning.
const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiDefaultTimeout = 60 * time.Second
	openaiMaxRetries     = 3
)

// OpenAI is the remote API-backed Provider variant. It speaks the
// OpenAI-compatible chat completions and embeddings wire protocol, so it
// also works against proxies exposing the same surface.
//
// Transient upstream failures (429, 5xx, network errors) are retried
// with bounded exponential backoff.
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	settings   Settings
	logger     log.Logger

	generationModelID string
	embeddingModelID  string
	embeddingSize     int
}

// OpenAIConfig configures the remote provider.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Required.
	APIKey string
	// BaseURL overrides the API endpoint (default: https://api.openai.com/v1).
	BaseURL string
	// Timeout bounds each HTTP call (default: 60s).
	Timeout time.Duration
	// Settings are the generation tuning defaults.
	Settings Settings
}

// NewOpenAI creates the remote provider variant.
func NewOpenAI(cfg OpenAIConfig, logger log.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", ErrConfiguration)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = openaiDefaultTimeout
	}
	return &OpenAI{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		settings:   cfg.Settings,
		logger:     logger,
	}, nil
}

// SetGenerationModel selects the chat completions model.
func (p *OpenAI) SetGenerationModel(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("%w: generation model id is empty", ErrConfiguration)
	}
	p.generationModelID = modelID
	return nil
}

// SetEmbeddingModel selects the embeddings model. The requested
// dimensionality is forwarded to the API and verified on every response.
func (p *OpenAI) SetEmbeddingModel(modelID string, embeddingSize int) error {
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
func (p *OpenAI) ConstructPrompt(role, content, fullPrompt string) Message {
	return constructPrompt(role, content, fullPrompt, p.settings.InputMaxChars)
}

// CleanMessages strips non-wire fields from every message.
func (p *OpenAI) CleanMessages(messages []Message) []Message {
	return cleanMessages(messages)
}

// Wire types for the chat completions endpoint.
type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type openaiEmbeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openaiErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateText sends prompt plus history to the chat completions endpoint.
// The prompt is appended as a user message to a copy of history; top-k is
// not supported by this API surface and is ignored.
func (p *OpenAI) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) (string, error) {
	if p.generationModelID == "" {
		return "", fmt.Errorf("%w: generation model not set", ErrGeneration)
	}

	o := buildGenerateOptions(p.settings, opts)

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, p.ConstructPrompt(RoleUser, prompt, ""))

	reqBody := openaiChatRequest{
		Model:       p.generationModelID,
		Messages:    p.CleanMessages(messages),
		MaxTokens:   o.maxOutputTokens,
		Temperature: o.temperature,
		TopP:        o.topP,
	}

	var resp openaiChatResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion returned", ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

// EmbedText embeds text via the embeddings endpoint and verifies the
// returned dimensionality against the configured embedding size.
func (p *OpenAI) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if p.embeddingModelID == "" {
		return nil, fmt.Errorf("%w: embedding model not set", ErrEmbedding)
	}

	reqBody := openaiEmbeddingRequest{
		Model:      p.embeddingModelID,
		Input:      text,
		Dimensions: p.embeddingSize,
	}

	var resp openaiEmbeddingResponse
	if err := p.post(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbedding)
	}
	vec := resp.Data[0].Embedding
	if len(vec) != p.embeddingSize {
		return nil, fmt.Errorf("%w: embedding model %q returned %d dimensions, configured %d",
			ErrConfiguration, p.embeddingModelID, len(vec), p.embeddingSize)
	}
	return vec, nil
}

// post sends a JSON request and decodes the JSON response, retrying
// transient failures with exponential backoff.
func (p *OpenAI) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= openaiMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = apiError(resp.StatusCode, respBody)
			p.logger.Warn("retrying transient API failure",
				"path", path, "status", resp.StatusCode, "attempt", attempt)
			// Respect Retry-After if provided.
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, convErr := strconv.Atoi(ra); convErr == nil {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(time.Duration(secs) * time.Second):
					}
				}
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return apiError(resp.StatusCode, respBody)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}
	return lastErr
}

// apiError extracts a structured API error when present.
func apiError(status int, body []byte) error {
	var errResp openaiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("API error [%d]: %s (type: %s)", status, errResp.Error.Message, errResp.Error.Type)
	}
	return fmt.Errorf("API error [%d]: %s", status, string(body))
}

// retryDelay returns the exponential backoff delay for an attempt,
// capped at 5 seconds.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 200 * time.Millisecond << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
