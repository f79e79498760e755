package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixedChunker(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewFixedChunker()
		assert.Equal(t, DefaultChunkSize, c.Size())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		c := NewFixedChunker(WithChunkSize(500), WithOverlap(50))
		assert.Equal(t, 500, c.Size())
		assert.Equal(t, 50, c.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := NewFixedChunker(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, c.Overlap(), c.Size())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := NewFixedChunker(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, c.Size())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})
}

func TestFixedChunker_ChunkCount(t *testing.T) {
	tests := []struct {
		name                string
		length, size, overl int
		want                int
	}{
		{"empty", 0, 1000, 200, 0},
		{"shorter than overlap", 150, 1000, 200, 1},
		{"equal to overlap", 200, 1000, 200, 1},
		{"single window", 1000, 1000, 200, 1},
		{"just over one window", 1001, 1000, 200, 2},
		{"default policy 2500 chars", 2500, 1000, 200, 3},
		{"no overlap exact multiple", 100, 50, 0, 2},
		{"small windows", 20, 10, 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewFixedChunker(WithChunkSize(tc.size), WithOverlap(tc.overl))
			chunks := c.Chunk("doc.pdf", strings.Repeat("x", tc.length))
			assert.Len(t, chunks, tc.want)
			assert.Equal(t, tc.want, Count(tc.length, tc.size, tc.overl))
		})
	}
}

func TestFixedChunker_OverlapContent(t *testing.T) {
	c := NewFixedChunker(WithChunkSize(10), WithOverlap(3))
	chunks := c.Chunk("doc.pdf", "0123456789ABCDEFGHIJ")

	require.Len(t, chunks, 3)
	assert.Equal(t, "0123456789", chunks[0].Text)
	assert.Equal(t, "789ABCDEFG", chunks[1].Text)
	assert.Equal(t, "EFGHIJ", chunks[2].Text)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		assert.True(t, strings.HasPrefix(chunks[i].Text, prev[len(prev)-3:]), "chunk %d should start with overlap", i)
	}
}

func TestFixedChunker_OrderingAndOwnership(t *testing.T) {
	c := NewFixedChunker(WithChunkSize(100), WithOverlap(20))
	chunks := c.Chunk("report.docx", strings.Repeat("abcdefghij", 40))

	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "report.docx", ch.Filename)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 100)
	}
	last := chunks[len(chunks)-1].Text
	assert.True(t, strings.HasSuffix(strings.Repeat("abcdefghij", 40), last))
}

func TestFixedChunker_CountsRunes(t *testing.T) {
	c := NewFixedChunker(WithChunkSize(4), WithOverlap(1))
	chunks := c.Chunk("u.pdf", "äöüßéè")

	require.Len(t, chunks, 2)
	assert.Equal(t, "äöüß", chunks[0].Text)
	assert.Equal(t, "ßéè", chunks[1].Text)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text))
	}
}

func TestFixedChunker_ShortTextIsWholeChunk(t *testing.T) {
	c := NewFixedChunker()
	chunks := c.Chunk("a.pdf", "short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSentenceChunker(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks := c.Chunk("a.pdf", "One. Two! Three? Four.")

	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two!", chunks[0].Text)
	assert.Equal(t, "Two! Three?", chunks[1].Text)
	assert.Equal(t, "Three? Four.", chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestSentenceChunker_TrailingFragmentKept(t *testing.T) {
	c := NewSentenceChunker(5, 0)
	chunks := c.Chunk("a.pdf", "Complete sentence. trailing fragment")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Complete sentence. trailing fragment", chunks[0].Text)
}

func TestSentenceChunker_Empty(t *testing.T) {
	c := NewSentenceChunker(3, 1)
	assert.Empty(t, c.Chunk("a.pdf", ""))
	assert.Empty(t, c.Chunk("a.pdf", "   \n\t"))
}
