package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/embedding/hashing"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/memory"
)

// textExtractor treats file bytes as already extracted text.
type textExtractor struct {
	calls int
}

func (e *textExtractor) Extract(data []byte, _ domain.DocumentType) (string, error) {
	e.calls++
	if string(data) == "CORRUPT" {
		return "", fmt.Errorf("%w: broken container", domain.ErrCorruptDocument)
	}
	return string(data), nil
}

// downEmbedder fails every call.
type downEmbedder struct{}

func (downEmbedder) Name() string   { return "down" }
func (downEmbedder) Dimension() int { return 8 }
func (downEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}
func (downEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	store     *vectorstore.Store
	extractor *textExtractor
	ingester  *Ingester
	embedder  domain.Embedder
}

func newFixture(t *testing.T, opts ...IngesterOption) *fixture {
	t.Helper()
	f := &fixture{
		store:     vectorstore.New(memory.NewPersister()),
		extractor: &textExtractor{},
		embedder:  embedding.NewGateway(hashing.NewEmbedder(64)),
	}
	opts = append([]IngesterOption{withClock(func() time.Time { return time.Unix(1700000000, 0) })}, opts...)
	f.ingester = NewIngester(f.extractor, chunker.NewFixedChunker(), f.embedder, f.store, opts...)
	return f
}

// longText is 2500 characters before cleaning and 2499 after, i.e. three default chunks.
var longText = strings.Repeat("abcd ", 500)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFile_ProcessesThenSkipsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := writeFile(t, t.TempDir(), "a.pdf", longText)

	out := f.ingester.IngestFile(ctx, path)
	assert.Equal(t, domain.StatusProcessed, out.Status)
	assert.Equal(t, 3, out.ChunkCount)
	assert.Empty(t, out.Warning)

	again := f.ingester.IngestFile(ctx, path)
	assert.Equal(t, domain.StatusSkipped, again.Status)
	assert.Equal(t, "DuplicateDocument: already ingested", again.Reason)
	assert.Equal(t, 1, f.extractor.calls, "duplicates are skipped before extraction")

	assert.Equal(t, 3, f.store.Len())
	docs := f.store.ListDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Filename)
	assert.Equal(t, int64(len(longText)), docs[0].Size)
	assert.Equal(t, 3, docs[0].ChunkCount)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), docs[0].IngestedAt)
}

func TestIngestFile_Failures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		embedder domain.Embedder
		kind     string
	}{
		{"unsupported format", "notes.txt", "hello", nil, "UnsupportedFormat"},
		{"no extension", "README", "hello", nil, "UnsupportedFormat"},
		{"corrupt document", "broken.pdf", "CORRUPT", nil, "CorruptDocument"},
		{"embedding down", "fine.docx", "some words to embed", downEmbedder{}, "EmbeddingUnavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.embedder != nil {
				f.ingester = NewIngester(f.extractor, chunker.NewFixedChunker(), embedding.NewGateway(tc.embedder), f.store)
			}
			out := f.ingester.IngestFile(ctx, writeFile(t, dir, tc.file, tc.content))
			assert.Equal(t, domain.StatusError, out.Status)
			assert.True(t, strings.HasPrefix(out.Reason, tc.kind+":"), out.Reason)
			assert.False(t, f.store.HasDocument(tc.file))
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestIngestFile_MissingFile(t *testing.T) {
	f := newFixture(t)
	out := f.ingester.IngestFile(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Equal(t, "gone.pdf", out.Filename)
}

func TestIngestFile_NoTextIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := writeFile(t, t.TempDir(), "scan.pdf", "  \n\t ")

	out := f.ingester.IngestFile(ctx, path)
	assert.Equal(t, domain.StatusProcessed, out.Status)
	assert.Equal(t, 0, out.ChunkCount)
	assert.Equal(t, NoTextWarning, out.Warning)
	assert.True(t, f.store.HasDocument("scan.pdf"))

	assert.Equal(t, domain.StatusSkipped, f.ingester.IngestFile(ctx, path).Status)
}

func TestScanFolder_Reconciles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", longText)
	writeFile(t, dir, "b.docx", "short document body")
	writeFile(t, dir, "c.doc", "CORRUPT")
	writeFile(t, dir, ".hidden.pdf", "secret")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	first := f.ingester.IngestFile(ctx, filepath.Join(dir, "a.pdf"))
	require.Equal(t, domain.StatusProcessed, first.Status)

	report := f.ingester.ScanFolder(ctx, dir)
	require.Len(t, report.Processed, 1)
	assert.Equal(t, "b.docx", report.Processed[0].Filename)
	assert.Equal(t, []string{"a.pdf"}, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "c.doc", report.Errors[0].Filename)
	assert.Equal(t, 1, report.TotalChunks)

	second := f.ingester.ScanFolder(ctx, dir)
	assert.Empty(t, second.Processed)
	assert.ElementsMatch(t, []string{"a.pdf", "b.docx"}, second.Skipped)
	assert.Len(t, second.Errors, 1, "failed files are retried on every scan")
	assert.Equal(t, 4, f.store.Len())
}

func TestScanFolder_MissingFolder(t *testing.T) {
	f := newFixture(t)
	report := f.ingester.ScanFolder(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.NotNil(t, report.Processed)
	assert.NotNil(t, report.Skipped)
	assert.NotNil(t, report.Errors)
	assert.Empty(t, report.Processed)
}

func TestScanFolder_Cancelled(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "alpha")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.ingester.ScanFolder(ctx, dir)
	assert.Empty(t, report.Processed)
	assert.False(t, f.store.HasDocument("a.pdf"))
}

func TestIngestUpload_SavesDeletesAndClears(t *testing.T) {
	ctx := context.Background()
	uploads := filepath.Join(t.TempDir(), "uploads")
	f := newFixture(t, WithUploadDir(uploads))

	out := f.ingester.IngestUpload(ctx, "../../etc/report.pdf", []byte("quarterly report text"))
	require.Equal(t, domain.StatusProcessed, out.Status)
	assert.Equal(t, "report.pdf", out.Filename)
	assert.FileExists(t, filepath.Join(uploads, "report.pdf"))

	out = f.ingester.IngestUpload(ctx, "policy.docx", []byte("vacation policy text"))
	require.Equal(t, domain.StatusProcessed, out.Status)

	assert.Equal(t, domain.StatusSkipped, f.ingester.IngestUpload(ctx, "policy.docx", []byte("other")).Status)

	failedUpload := f.ingester.IngestUpload(ctx, "bad.pdf", []byte("CORRUPT"))
	assert.Equal(t, domain.StatusError, failedUpload.Status)
	assert.NoFileExists(t, filepath.Join(uploads, "bad.pdf"))

	removed, err := f.ingester.DeleteDocument(ctx, "report.pdf")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, filepath.Join(uploads, "report.pdf"))
	assert.False(t, f.store.HasDocument("report.pdf"))

	removed, err = f.ingester.DeleteDocument(ctx, "report.pdf")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := f.ingester.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, filepath.Join(uploads, "policy.docx"))
	assert.Empty(t, f.store.ListDocuments())
}

func TestDeleteDocument_RemovesFailedUpload(t *testing.T) {
	ctx := context.Background()
	uploads := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "broken.pdf"), []byte("CORRUPT"), 0o644))
	f := newFixture(t, WithUploadDir(uploads))

	report := f.ingester.ScanFolder(ctx, uploads)
	require.Len(t, report.Errors, 1)

	removed, err := f.ingester.DeleteDocument(ctx, "broken.pdf")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoFileExists(t, filepath.Join(uploads, "broken.pdf"))

	report = f.ingester.ScanFolder(ctx, uploads)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Processed)
}

func TestDeleteDocument_StaysInsideUploadDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	require.NoError(t, os.MkdirAll(uploads, 0o755))
	outside := filepath.Join(root, "keep.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	f := newFixture(t, WithUploadDir(uploads))

	_, err := f.ingester.DeleteDocument(ctx, "../keep.pdf")
	require.NoError(t, err)
	assert.FileExists(t, outside)
}

func TestIngestUpload_RejectsBadNames(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"", "..", ".env", "dir/"} {
		out := f.ingester.IngestUpload(context.Background(), name, []byte("x"))
		assert.Equal(t, domain.StatusError, out.Status, "name %q", name)
	}
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	info, err := f.ingester.Inspect(writeFile(t, dir, "a.pdf", longText))
	require.NoError(t, err)
	assert.Equal(t, domain.TypePDF, info.Type)
	assert.Equal(t, 2499, info.Characters)
	assert.Equal(t, 500, info.Words)
	assert.Equal(t, 3, info.Chunks)
	assert.False(t, f.store.HasDocument("a.pdf"))

	_, err = f.ingester.Inspect(writeFile(t, dir, "b.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = f.ingester.Inspect(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIsCandidate(t *testing.T) {
	assert.True(t, IsCandidate("a.PDF"))
	assert.True(t, IsCandidate("b.docx"))
	assert.False(t, IsCandidate(".a.pdf"))
	assert.False(t, IsCandidate("a.txt"))
	assert.False(t, IsCandidate("pdf"))
}
