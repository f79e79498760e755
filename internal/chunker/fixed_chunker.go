// Package chunker splits extracted document text into overlapping chunks.
package chunker

import "docrag/internal/domain"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
const DefaultChunkOverlap = 200

// Ensure FixedChunker implements the interface.
var _ domain.Chunker = (*FixedChunker)(nil)

// FixedChunker splits text into fixed-size character windows with overlap.
// Sizes count runes, so multi-byte characters are never split.
type FixedChunker struct {
	size    int
	overlap int
}

// Option configures a FixedChunker.
type Option func(*FixedChunker)

// WithChunkSize sets the chunk size in characters. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *FixedChunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap in characters. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *FixedChunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewFixedChunker creates a chunker with the given options.
func NewFixedChunker(opts ...Option) *FixedChunker {
	c := &FixedChunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the chunk size in characters.
func (c *FixedChunker) Size() int { return c.size }

// Overlap returns the overlap in characters.
func (c *FixedChunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered chunks owned by filename.
// Empty text yields no chunks; text no longer than the overlap yields one.
func (c *FixedChunker) Chunk(filename, text string) []domain.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.overlap {
		return []domain.Chunk{{Filename: filename, Index: 0, Text: text}}
	}

	stride := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, Count(n, c.size, c.overlap))
	for start := 0; ; start += stride {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, domain.Chunk{
			Filename: filename,
			Index:    len(chunks),
			Text:     string(runes[start:end]),
		})
		if end == n {
			break
		}
	}
	return chunks
}

// Count returns the number of chunks Chunk produces for text of length n.
func Count(n, size, overlap int) int {
	switch {
	case n <= 0:
		return 0
	case n <= overlap:
		return 1
	}
	stride := size - overlap
	return (n - overlap + stride - 1) / stride
}
