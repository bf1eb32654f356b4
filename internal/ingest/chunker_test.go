package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_SplitsOnSentences(t *testing.T) {
	t.Parallel()

	doc := SourceDocument{
		ID:       "doc.txt",
		Content:  "First sentence here. Second sentence here. Third sentence here.",
		Metadata: map[string]string{"source": "doc.txt"},
	}

	chunks := NewChunker(45, 0).Chunk(doc)
	require.Len(t, chunks, 2)

	assert.Equal(t, "doc.txt:0", chunks[0].ID)
	assert.Equal(t, "First sentence here. Second sentence here.", chunks[0].Content)
	assert.Equal(t, "doc.txt:1", chunks[1].ID)
	assert.Equal(t, "Third sentence here.", chunks[1].Content)

	assert.Equal(t, "doc.txt", chunks[0].Metadata["source"])
	assert.Equal(t, "0", chunks[0].Metadata["chunk_index"])
	assert.Equal(t, "1", chunks[1].Metadata["chunk_index"])
}

func TestChunker_OverlapCarriesTrailingSentences(t *testing.T) {
	t.Parallel()

	doc := SourceDocument{
		ID:      "doc",
		Content: "Alpha one. Beta two. Gamma three. Delta four.",
	}

	chunks := NewChunker(25, 12).Chunk(doc)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The last sentence of one chunk reappears at the head of the next.
	first := strings.Split(chunks[0].Content, " ")
	carried := first[len(first)-2] + " " + first[len(first)-1]
	assert.True(t, strings.HasPrefix(chunks[1].Content, carried),
		"chunk %q should start with carried tail %q", chunks[1].Content, carried)
}

func TestChunker_EmptyDocument(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NewChunker(100, 0).Chunk(SourceDocument{ID: "a", Content: "   \n "}))
	assert.Empty(t, NewChunker(100, 0).Chunk(SourceDocument{ID: "b"}))
}

func TestChunker_TextWithoutSentenceMarkers(t *testing.T) {
	t.Parallel()

	chunks := NewChunker(100, 0).Chunk(SourceDocument{ID: "a", Content: "no terminal punctuation at all"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "no terminal punctuation at all", chunks[0].Content)
}

func TestChunker_OversizedSentenceBecomesOwnChunk(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 60) + "end."
	chunks := NewChunker(50, 0).Chunk(SourceDocument{ID: "a", Content: "Short one. " + long})
	require.Len(t, chunks, 2)
	assert.Equal(t, "Short one.", chunks[0].Content)
	assert.Contains(t, chunks[1].Content, "end.")
}

func TestNewChunker_ClampsParameters(t *testing.T) {
	t.Parallel()

	c := NewChunker(0, -5)
	assert.Equal(t, 1000, c.chunkSize)
	assert.Zero(t, c.overlap)

	c = NewChunker(100, 200)
	assert.Equal(t, 50, c.overlap)
}
