package ingest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minirag/minirag/internal/ingest"
	"github.com/minirag/minirag/internal/testutil"
	"github.com/minirag/minirag/internal/vectorstore"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestDirLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Text file content.")
	writeFile(t, dir, "b.md", "Markdown content.")
	writeFile(t, dir, "skip.pdf", "binary")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o750))
	writeFile(t, dir, filepath.Join("nested", "c.txt"), "Nested content.")

	docs, err := ingest.NewDirLoader(dir).Load(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	ids := []string{docs[0].ID, docs[1].ID, docs[2].ID}
	assert.Contains(t, ids, "a.txt")
	assert.Contains(t, ids, "b.md")
	assert.Contains(t, ids, "nested/c.txt")
	for _, doc := range docs {
		assert.Equal(t, doc.ID, doc.Metadata["source"])
	}
}

func TestDirLoader_EmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := ingest.NewDirLoader(t.TempDir()).Load(t.Context())
	assert.Error(t, err)
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "First sentence. Second sentence.")
	writeFile(t, dir, "b.txt", "Another document entirely.")

	provider := &testutil.FakeProvider{EmbedFunc: func(string) []float32 {
		return []float32{1, 0, 0}
	}}
	store := vectorstore.NewMemory(3)

	builder, err := ingest.NewBuilder(ingest.BuilderConfig{
		Loader:   ingest.NewDirLoader(dir),
		Chunker:  ingest.NewChunker(1000, 200),
		Embedder: provider,
		Store:    store,
		LockPath: filepath.Join(dir, "ingest.lock"),
	}, nil)
	require.NoError(t, err)

	stored, err := builder.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	count, err := store.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, provider.EmbedCalls(), 2)

	// Chunks are retrievable with their provenance intact.
	docs, err := store.Query(t.Context(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotEmpty(t, docs[0].Metadata["source"])
}

func TestBuilder_EmbedFailureAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Some content here.")

	provider := &testutil.FakeProvider{EmbedErr: errors.New("backend down")}
	builder, err := ingest.NewBuilder(ingest.BuilderConfig{
		Loader:   ingest.NewDirLoader(dir),
		Chunker:  ingest.NewChunker(1000, 200),
		Embedder: provider,
		Store:    vectorstore.NewMemory(0),
		LockPath: filepath.Join(dir, "ingest.lock"),
	}, nil)
	require.NoError(t, err)

	_, err = builder.Build(t.Context())
	assert.Error(t, err)
}

func TestNewBuilder_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	cfg := ingest.BuilderConfig{
		Loader:   ingest.NewDirLoader(t.TempDir()),
		Chunker:  ingest.NewChunker(1000, 200),
		Embedder: &testutil.FakeProvider{},
		Store:    vectorstore.NewMemory(0),
	}

	missing := cfg
	missing.Loader = nil
	_, err := ingest.NewBuilder(missing, nil)
	assert.Error(t, err)

	missing = cfg
	missing.Embedder = nil
	_, err = ingest.NewBuilder(missing, nil)
	assert.Error(t, err)

	missing = cfg
	missing.Store = nil
	_, err = ingest.NewBuilder(missing, nil)
	assert.Error(t, err)
}
