package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force in-memory store. Every Query scans the whole
// corpus, so it suits small document sets and tests.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu            sync.RWMutex
	docs          []Document
	embeddings    [][]float32
	byID          map[string]int
	embeddingSize int
}

// NewMemory creates an empty in-memory store. embeddingSize <= 0
// disables dimensionality checks.
func NewMemory(embeddingSize int) *Memory {
	return &Memory{
		byID:          make(map[string]int),
		embeddingSize: embeddingSize,
	}
}

// Query scans all documents and returns the limit most similar by
// cosine similarity, best first.
func (s *Memory) Query(_ context.Context, embedding []float32, limit int) ([]Document, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if s.embeddingSize > 0 && len(embedding) != s.embeddingSize {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d",
			len(embedding), s.embeddingSize)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Document, 0, len(s.docs))
	for i, doc := range s.docs {
		doc.Score = cosineSimilarity(embedding, s.embeddings[i])
		scored = append(scored, doc)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Add stores documents with their embeddings, overwriting existing IDs.
func (s *Memory) Add(_ context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))
	}
	for i, emb := range embeddings {
		if s.embeddingSize > 0 && len(emb) != s.embeddingSize {
			return fmt.Errorf("embedding for %q has %d dimensions, store expects %d",
				docs[i].ID, len(emb), s.embeddingSize)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range docs {
		if idx, ok := s.byID[doc.ID]; ok {
			s.docs[idx] = doc
			s.embeddings[idx] = embeddings[i]
			continue
		}
		s.byID[doc.ID] = len(s.docs)
		s.docs = append(s.docs, doc)
		s.embeddings = append(s.embeddings, embeddings[i])
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
