// Package ingest builds the vector index from source documents: load
// files, split them into overlapping chunks, embed each chunk and store
// the result.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SourceDocument is one loaded file before chunking.
type SourceDocument struct {
	// ID identifies the document, typically its path relative to the
	// ingest root.
	ID string
	// Content is the full document text.
	Content string
	// Metadata carries provenance, at minimum the source path.
	Metadata map[string]string
}

// Loader produces source documents from some origin.
type Loader interface {
	Load(ctx context.Context) ([]SourceDocument, error)
}

// textExtensions are the file types the directory loader picks up.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// DirLoader loads all text and markdown files under a directory tree.
type DirLoader struct {
	root string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{root: dir}
}

// Load walks the root and reads every text file, in path order.
func (l *DirLoader) Load(ctx context.Context) ([]SourceDocument, error) {
	var docs []SourceDocument

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, SourceDocument{
			ID:       filepath.ToSlash(rel),
			Content:  string(content),
			Metadata: map[string]string{"source": filepath.ToSlash(rel)},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", l.root, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no text documents found under %s", l.root)
	}
	return docs, nil
}
