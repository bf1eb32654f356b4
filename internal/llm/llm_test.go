package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "shorter than budget unchanged", in: "short", max: 10, want: "short"},
		{name: "exactly at budget unchanged", in: "1234567890", max: 10, want: "1234567890"},
		{name: "longer than budget cut", in: "12345678901", max: 10, want: "1234567890"},
		{name: "trailing whitespace stripped after cut", in: "123456789 1", max: 10, want: "123456789"},
		{name: "zero budget disables truncation", in: "anything goes", max: 0, want: "anything goes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truncate(tt.in, tt.max))
		})
	}
}

func TestConstructPrompt_Truncation(t *testing.T) {
	t.Parallel()

	p, err := NewOllama(OllamaConfig{Settings: Settings{InputMaxChars: 8}}, nil)
	require.NoError(t, err)

	long := strings.Repeat("a", 20)
	msg := p.ConstructPrompt(RoleUser, long, "")
	assert.Equal(t, RoleUser, msg.Role)
	assert.Len(t, msg.Content, 8)

	// Boundary: content length == budget is unchanged.
	exact := strings.Repeat("b", 8)
	assert.Equal(t, exact, p.ConstructPrompt(RoleUser, exact, "").Content)

	// FullPrompt passes through untouched.
	msg = p.ConstructPrompt(RoleAssistant, "answer", "the full prompt")
	assert.Equal(t, "the full prompt", msg.FullPrompt)
}

func TestCleanMessages(t *testing.T) {
	t.Parallel()

	in := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer", FullPrompt: "docs + footer"},
	}

	out := cleanMessages(in)
	require.Len(t, out, 3)
	for _, m := range out {
		assert.Empty(t, m.FullPrompt)
	}
	// Wire fields preserved.
	assert.Equal(t, RoleAssistant, out[2].Role)
	assert.Equal(t, "answer", out[2].Content)
	// Input untouched.
	assert.Equal(t, "docs + footer", in[2].FullPrompt)
}

func TestCleanMessages_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, cleanMessages(nil))
	assert.Empty(t, cleanMessages([]Message{}))
}

func TestBuildGenerateOptions(t *testing.T) {
	t.Parallel()

	defaults := Settings{MaxOutputTokens: 100, Temperature: 0.1, TopK: 10, TopP: 0.95}

	t.Run("defaults apply", func(t *testing.T) {
		t.Parallel()
		o := buildGenerateOptions(defaults, nil)
		assert.Equal(t, 100, *o.maxOutputTokens)
		assert.Equal(t, float32(0.1), *o.temperature)
		assert.Equal(t, 10, *o.topK)
		assert.Equal(t, float32(0.95), *o.topP)
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Parallel()
		o := buildGenerateOptions(defaults, []GenerateOption{
			WithMaxOutputTokens(5),
			WithTemperature(0.9),
			WithTopK(3),
			WithTopP(0.5),
		})
		assert.Equal(t, 5, *o.maxOutputTokens)
		assert.Equal(t, float32(0.9), *o.temperature)
		assert.Equal(t, 3, *o.topK)
		assert.Equal(t, float32(0.5), *o.topP)
	})
}

func TestFactory(t *testing.T) {
	t.Parallel()

	t.Run("openai requires api key", func(t *testing.T) {
		t.Parallel()
		_, err := New(BackendOpenAI, FactoryConfig{}, nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("openai", func(t *testing.T) {
		t.Parallel()
		p, err := New(BackendOpenAI, FactoryConfig{APIKey: "sk-test"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &OpenAI{}, p)
	})

	t.Run("ollama", func(t *testing.T) {
		t.Parallel()
		p, err := New(BackendOllama, FactoryConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &Ollama{}, p)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		_, err := New("huggingface", FactoryConfig{}, nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}
