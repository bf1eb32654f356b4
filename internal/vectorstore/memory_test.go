package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_QueryRanksBySimilarity(t *testing.T) {
	t.Parallel()

	s := NewMemory(3)
	require.NoError(t, s.Add(t.Context(),
		[]Document{
			{ID: "x-axis", Content: "points along x"},
			{ID: "y-axis", Content: "points along y"},
			{ID: "diagonal", Content: "points between"},
		},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.7, 0.7, 0},
		},
	))

	docs, err := s.Query(t.Context(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "x-axis", docs[0].ID)
	assert.Equal(t, "diagonal", docs[1].ID)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
	assert.Greater(t, docs[0].Score, docs[1].Score)
}

func TestMemory_QueryEmptyStore(t *testing.T) {
	t.Parallel()

	docs, err := NewMemory(3).Query(t.Context(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_AddOverwritesByID(t *testing.T) {
	t.Parallel()

	s := NewMemory(2)
	require.NoError(t, s.Add(t.Context(),
		[]Document{{ID: "a", Content: "old"}}, [][]float32{{1, 0}}))
	require.NoError(t, s.Add(t.Context(),
		[]Document{{ID: "a", Content: "new"}}, [][]float32{{0, 1}}))

	count, err := s.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	docs, err := s.Query(t.Context(), []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].Content)
}

func TestMemory_DimensionChecks(t *testing.T) {
	t.Parallel()

	s := NewMemory(3)

	err := s.Add(t.Context(), []Document{{ID: "a"}}, [][]float32{{1, 0}})
	assert.Error(t, err)

	_, err = s.Query(t.Context(), []float32{1, 0}, 1)
	assert.Error(t, err)

	_, err = s.Query(t.Context(), []float32{1, 0, 0}, 0)
	assert.Error(t, err)
}

func TestMemory_AddLengthMismatch(t *testing.T) {
	t.Parallel()

	s := NewMemory(0)
	err := s.Add(t.Context(), []Document{{ID: "a"}, {ID: "b"}}, [][]float32{{1}})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
}

func TestFactory(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{Backend: BackendMemory, EmbeddingSize: 4}, nil)
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
	})

	t.Run("pgvector requires pool", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{Backend: BackendPgvector}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{Backend: "faiss"}, nil)
		assert.Error(t, err)
	})
}
