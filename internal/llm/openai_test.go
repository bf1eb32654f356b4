package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minirag/minirag/internal/log"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAI(OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Settings: Settings{
			InputMaxChars:   1024,
			MaxOutputTokens: 256,
			Temperature:     0.1,
			TopP:            0.95,
		},
	}, log.NewNop())
	require.NoError(t, err)
	return p
}

func TestOpenAI_GenerateText(t *testing.T) {
	t.Parallel()

	var captured openaiChatRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "the answer"}},
			},
		})
	})
	require.NoError(t, p.SetGenerationModel("gpt-4o-mini"))

	history := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleAssistant, Content: "earlier", FullPrompt: "docs"},
	}
	answer, err := p.GenerateText(t.Context(), "what is up", history)
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	// History is sent first, cleaned, with the prompt appended as a user turn.
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, RoleSystem, captured.Messages[0].Role)
	assert.Empty(t, captured.Messages[1].FullPrompt)
	assert.Equal(t, RoleUser, captured.Messages[2].Role)
	assert.Equal(t, "what is up", captured.Messages[2].Content)

	// The caller's slice is not mutated.
	require.Len(t, history, 2)
	assert.Equal(t, "docs", history[1].FullPrompt)
}

func TestOpenAI_GenerateText_NoModel(t *testing.T) {
	t.Parallel()

	p, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test"}, log.NewNop())
	require.NoError(t, err)

	_, err = p.GenerateText(t.Context(), "q", nil)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestOpenAI_GenerateText_EmptyChoices(t *testing.T) {
	t.Parallel()

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	require.NoError(t, p.SetGenerationModel("gpt-4o-mini"))

	_, err := p.GenerateText(t.Context(), "q", nil)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestOpenAI_GenerateText_APIError(t *testing.T) {
	t.Parallel()

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})
	require.NoError(t, p.SetGenerationModel("gpt-4o-mini"))

	_, err := p.GenerateText(t.Context(), "q", nil)
	require.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAI_GenerateText_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "recovered"}},
			},
		})
	})
	require.NoError(t, p.SetGenerationModel("gpt-4o-mini"))

	answer, err := p.GenerateText(t.Context(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_EmbedText(t *testing.T) {
	t.Parallel()

	var captured openaiEmbeddingRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	})
	require.NoError(t, p.SetEmbeddingModel("text-embedding-3-small", 3))

	vec, err := p.EmbedText(t.Context(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, captured.Dimensions)
	assert.Equal(t, "hello", captured.Input)
}

func TestOpenAI_EmbedText_DimensionMismatch(t *testing.T) {
	t.Parallel()

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	})
	require.NoError(t, p.SetEmbeddingModel("text-embedding-3-small", 3))

	_, err := p.EmbedText(t.Context(), "hello")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestOpenAI_SetModels(t *testing.T) {
	t.Parallel()

	p, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test"}, log.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, p.SetGenerationModel(""), ErrConfiguration)
	assert.ErrorIs(t, p.SetEmbeddingModel("", 384), ErrConfiguration)
	assert.ErrorIs(t, p.SetEmbeddingModel("m", 0), ErrConfiguration)
	assert.NoError(t, p.SetEmbeddingModel("m", 384))
}
