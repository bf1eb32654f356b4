package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Substitution(t *testing.T) {
	t.Parallel()

	e := New(LocaleEN)

	got, err := e.Get(DomainRAG, DocumentPrompt, map[string]string{
		"doc_num":    "3",
		"chunk_text": "chunk body",
	})
	require.NoError(t, err)
	assert.Equal(t, "## Document No: 3\n### Content: chunk body", got)
}

func TestGet_LocaleFallback(t *testing.T) {
	t.Parallel()

	t.Run("arabic resolves its own set", func(t *testing.T) {
		t.Parallel()
		e := New(LocaleAR)
		got, err := e.Get(DomainRAG, FooterPrompt, map[string]string{"query": "q"})
		require.NoError(t, err)
		assert.Contains(t, got, "q")
		assert.NotContains(t, got, "Question:")
	})

	t.Run("unknown locale falls back to english", func(t *testing.T) {
		t.Parallel()
		e := New("fr")
		got, err := e.Get(DomainRAG, SystemPrompt, nil)
		require.NoError(t, err)
		assert.Contains(t, got, "You are an assistant")
	})

	t.Run("missing in both locales", func(t *testing.T) {
		t.Parallel()
		e := New(LocaleAR)
		_, err := e.Get(DomainRAG, "no_such_prompt", nil)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = e.Get("no_such_domain", SystemPrompt, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGet_ValuesAreNotRescanned(t *testing.T) {
	t.Parallel()

	e := New(LocaleEN)

	// Document content carrying placeholder syntax must come through
	// literally instead of expanding another substitution.
	got, err := e.Get(DomainRAG, DocumentPrompt, map[string]string{
		"doc_num":    "1",
		"chunk_text": "price is $query or $doc_num dollars",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "price is $query or $doc_num dollars")
}

func TestSubstitute_LongestKeyFirst(t *testing.T) {
	t.Parallel()

	got := substitute("$chunk_text and $chunk", map[string]string{
		"chunk":      "SHORT",
		"chunk_text": "LONG",
	})
	assert.Equal(t, "LONG and SHORT", got)
}

func TestSubstitute_UnknownPlaceholderStaysLiteral(t *testing.T) {
	t.Parallel()

	got := substitute("cost: $price for $query", map[string]string{"query": "books"})
	assert.Equal(t, "cost: $price for books", got)
}

func TestValidateRequired(t *testing.T) {
	t.Parallel()

	for _, locale := range []string{LocaleEN, LocaleAR, "de"} {
		assert.NoError(t, New(locale).ValidateRequired(), "locale %s", locale)
	}
}

func TestNew_NormalizesLocale(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LocaleEN, New("").Locale())
	assert.Equal(t, LocaleAR, New(" AR ").Locale())
}

func TestSystemPromptHasNoPlaceholders(t *testing.T) {
	t.Parallel()

	for locale, domains := range catalog {
		text := domains[DomainRAG][SystemPrompt]
		assert.False(t, strings.ContainsRune(text, '$'), "locale %s", locale)
	}
}
