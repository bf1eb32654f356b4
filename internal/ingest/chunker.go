package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Chunk is one piece of a source document, sized for embedding.
type Chunk struct {
	// ID is the document ID plus the chunk index.
	ID string
	// Content is the chunk text.
	Content string
	// Metadata is inherited from the source document plus the index.
	Metadata map[string]string
}

// Chunker splits document text along sentence boundaries into chunks of
// roughly chunkSize characters, with the tail of each chunk repeated at
// the head of the next for context continuity.
type Chunker struct {
	chunkSize int
	overlap   int
	splitter  *regexp.Regexp
}

// NewChunker creates a Chunker. Non-positive chunkSize falls back to
// 1000 characters; negative overlap falls back to 0. Overlap is clamped
// below chunkSize.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		splitter:  regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
	}
}

// Chunk splits one document. Empty or whitespace-only documents produce
// no chunks.
func (c *Chunker) Chunk(doc SourceDocument) []Chunk {
	sentences := c.splitter.FindAllString(doc.Content, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(doc.Content)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}

	kept := sentences[:0]
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	sentences = kept
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		idx := len(chunks)
		metadata := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = strconv.Itoa(idx)

		chunks = append(chunks, Chunk{
			ID:       doc.ID + ":" + strconv.Itoa(idx),
			Content:  strings.Join(current, " "),
			Metadata: metadata,
		})

		// Seed the next chunk with trailing sentences up to the
		// overlap budget.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if carriedLen+len(current[i]) > c.overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += len(current[i]) + 1
		}
		current = carried
		currentLen = carriedLen
	}

	for _, sentence := range sentences {
		// An oversized sentence becomes its own chunk rather than
		// being split mid-sentence.
		if currentLen > 0 && currentLen+len(sentence) > c.chunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}
	flush()

	return chunks
}
