package domain

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Document is one ingested file, keyed by its filename.
type Document struct {
	Filename   string
	Size       int64
	ChunkCount int
	IngestedAt time.Time
}

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	Filename string
	Index    int
	Text     string
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// StoreStats summarises the contents of a vector store.
type StoreStats struct {
	Documents int
	Chunks    int
	Dimension int
	Model     string
}

// DocumentType is the declared format of a raw document.
type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeDOC  DocumentType = "doc"
	TypeDOCX DocumentType = "docx"
)

// SupportedTypes lists every document type the extractor accepts.
var SupportedTypes = []DocumentType{TypePDF, TypeDOC, TypeDOCX}

// ParseDocumentType maps a filename or bare extension to a DocumentType.
// The second return value is false for anything unsupported.
func ParseDocumentType(name string) (DocumentType, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = "." + strings.ToLower(strings.TrimPrefix(name, "."))
	}
	switch ext {
	case ".pdf":
		return TypePDF, true
	case ".doc":
		return TypeDOC, true
	case ".docx":
		return TypeDOCX, true
	}
	return DocumentType(strings.TrimPrefix(ext, ".")), false
}

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(data []byte, t DocumentType) (string, error)
}

// Chunker splits extracted text into ordered chunks.
type Chunker interface {
	Chunk(filename, text string) []Chunk
}

// Embedder converts free text into fixed-length numeric vectors.
// EmbedBatch returns vectors in the same order as its input.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
