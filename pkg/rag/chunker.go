package rag

import (
	"fmt"
	"strings"
)

// defaultSeparators orders split points from most to least semantic:
// paragraph breaks, line breaks, word breaks, then raw characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits documents into overlapping pieces for embedding.
//
// Splitting is recursive: the chunker prefers the most semantic separator
// present in the text and falls back to finer ones for pieces that are
// still too large. Consecutive chunks share up to Overlap characters so
// context survives chunk boundaries.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker creates a chunker with the given target size and overlap in
// characters. Overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}, nil
}

// ChunkDocument splits a document, propagating its metadata to every chunk.
// Empty or whitespace-only documents produce no chunks.
func (c *Chunker) ChunkDocument(doc Document) []DocumentChunk {
	pieces := c.Split(doc.Content)

	chunks := make([]DocumentChunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, DocumentChunk{
			Content:  piece,
			Filename: doc.Filename,
			Page:     doc.Page,
			Source:   doc.Source,
		})
	}
	return chunks
}

// ChunkAll splits a batch of documents in order.
func (c *Chunker) ChunkAll(docs []Document) []DocumentChunk {
	var chunks []DocumentChunk
	for _, doc := range docs {
		chunks = append(chunks, c.ChunkDocument(doc)...)
	}
	return chunks
}

// Split cuts text into pieces of at most the target size.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.splitRecursive(text, c.separators)
}

func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if len(text) <= c.size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	separator, remaining := pickSeparator(text, separators)
	if separator == "" {
		return c.splitByWidth(text)
	}

	parts := strings.Split(text, separator)
	return c.merge(parts, separator, remaining)
}

// pickSeparator returns the first separator present in the text, and the
// finer separators left to recurse with.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// merge greedily joins split parts back into chunks close to the target
// size. The tail of each emitted chunk seeds the next one to provide the
// overlap. Parts that alone exceed the size are split further.
func (c *Chunker) merge(parts []string, separator string, remaining []string) []string {
	var chunks []string
	var current []string
	currentLen := 0
	seedCount := 0

	flush := func() {
		// A chunk that is nothing but the previous chunk's overlap seed
		// would duplicate content already emitted.
		if len(current) == 0 || len(current) == seedCount {
			return
		}
		chunk := strings.Join(current, separator)
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		// Keep trailing parts within the overlap budget as the seed of
		// the next chunk.
		var kept []string
		keptLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			partLen := len(current[i]) + len(separator)
			if keptLen+partLen > c.overlap {
				break
			}
			kept = append([]string{current[i]}, kept...)
			keptLen += partLen
		}
		current = kept
		currentLen = keptLen
		seedCount = len(kept)
	}

	for _, part := range parts {
		if len(part) > c.size {
			flush()
			current = nil
			currentLen = 0
			seedCount = 0
			chunks = append(chunks, c.splitRecursive(part, remaining)...)
			continue
		}

		partLen := len(part)
		if len(current) > 0 {
			partLen += len(separator)
		}
		if currentLen+partLen > c.size {
			flush()
			// Re-measure against the seeded overlap.
			partLen = len(part)
			if len(current) > 0 {
				partLen += len(separator)
			}
			if currentLen+partLen > c.size {
				current = nil
				currentLen = 0
				seedCount = 0
				partLen = len(part)
			}
		}
		current = append(current, part)
		currentLen += partLen
	}
	flush()

	return chunks
}

// splitByWidth is the character-level fallback for text with no separators
// at all. It walks rune boundaries so multi-byte characters are never cut.
func (c *Chunker) splitByWidth(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
