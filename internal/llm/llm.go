// Package llm provides the generation provider abstraction used by the
// RAG orchestrator.
//
// A Provider turns a structured message list into generated text and
// embeds text into vectors. Two variants are implemented:
//
//   - OpenAI: remote OpenAI-compatible HTTP API (openai.go)
//   - Ollama: local inference server (ollama.go)
//
// Both satisfy the same contract and are selected once at startup via
// New (factory.go), keyed by backend name.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Message roles. The first message of a fresh session is system;
// user and assistant alternate thereafter (soft invariant, not enforced).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors. Wrapped errors can be checked with errors.Is().
var (
	// ErrConfiguration indicates a missing or invalid model/backend selection.
	// Fatal at startup.
	ErrConfiguration = errors.New("llm: configuration error")

	// ErrGeneration indicates an upstream generation failure, surfaced per request.
	ErrGeneration = errors.New("llm: generation error")

	// ErrEmbedding indicates an upstream embedding failure, surfaced per request.
	ErrEmbedding = errors.New("llm: embedding error")
)

// Message is a single conversation turn.
//
// FullPrompt carries the retrieval-augmented prompt that produced an
// assistant message. It is internal bookkeeping: CleanMessages strips it
// before wire dispatch since upstream chat APIs reject unknown fields.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	FullPrompt string `json:"full_prompt,omitempty"`
}

// Provider is the generation capability consumed by the orchestrator.
//
// GenerateText operates on a copy of history: the prompt is appended as
// a user-role message to the copy before dispatch, and the caller's
// slice is never mutated.
type Provider interface {
	// SetGenerationModel selects the generation backend model.
	SetGenerationModel(modelID string) error

	// SetEmbeddingModel selects the embedding backend model. embeddingSize
	// must match the model's native output dimensionality; a mismatch is
	// reported as ErrConfiguration when detectable.
	SetEmbeddingModel(modelID string, embeddingSize int) error

	// GenerateText generates a completion for prompt given prior history.
	// Never returns an empty string together with a nil error.
	GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) (string, error)

	// EmbedText embeds text into a vector of length embeddingSize.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// ConstructPrompt builds a Message, truncating content to the
	// provider's input character budget.
	ConstructPrompt(role, content, fullPrompt string) Message

	// CleanMessages strips provider-internal fields before wire dispatch.
	CleanMessages(messages []Message) []Message
}

// Settings carries the tuning defaults shared by all provider variants.
// Immutable after provider construction.
type Settings struct {
	InputMaxChars   int
	MaxOutputTokens int
	Temperature     float32
	TopK            int
	TopP            float32
}

// generateOptions are per-call overrides for the Settings defaults.
type generateOptions struct {
	maxOutputTokens *int
	temperature     *float32
	topK            *int
	topP            *float32
}

// GenerateOption overrides one generation parameter for a single call.
type GenerateOption func(*generateOptions)

// WithMaxOutputTokens overrides the output token budget.
func WithMaxOutputTokens(n int) GenerateOption {
	return func(o *generateOptions) { o.maxOutputTokens = &n }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) GenerateOption {
	return func(o *generateOptions) { o.temperature = &t }
}

// WithTopK overrides top-k sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = &k }
}

// WithTopP overrides nucleus sampling.
func WithTopP(p float32) GenerateOption {
	return func(o *generateOptions) { o.topP = &p }
}

func buildGenerateOptions(s Settings, opts []GenerateOption) generateOptions {
	o := generateOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxOutputTokens == nil {
		o.maxOutputTokens = &s.MaxOutputTokens
	}
	if o.temperature == nil {
		o.temperature = &s.Temperature
	}
	if o.topK == nil {
		o.topK = &s.TopK
	}
	if o.topP == nil {
		o.topP = &s.TopP
	}
	return o
}

// truncate keeps the first max characters of text and strips trailing
// whitespace. max <= 0 disables truncation.
func truncate(text string, max int) string {
	if max > 0 && len(text) > max {
		text = text[:max]
	}
	return strings.TrimRight(text, " \t\n\r")
}

// constructPrompt is the shared ConstructPrompt implementation.
func constructPrompt(role, content, fullPrompt string, inputMaxChars int) Message {
	return Message{
		Role:       role,
		Content:    truncate(content, inputMaxChars),
		FullPrompt: fullPrompt,
	}
}

// cleanMessages is the shared CleanMessages implementation. It returns a
// new slice holding only the wire fields of every message.
func cleanMessages(messages []Message) []Message {
	cleaned := make([]Message, len(messages))
	for i, m := range messages {
		cleaned[i] = Message{Role: m.Role, Content: m.Content}
	}
	return cleaned
}
