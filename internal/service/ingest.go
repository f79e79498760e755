package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docrag/internal/domain"
	"docrag/internal/extract"
	"docrag/internal/logger"
)

// NoTextWarning is attached to documents that produced no chunks.
const NoTextWarning = "no extractable text"

// DocumentStore is the part of the vector store the ingester mutates.
type DocumentStore interface {
	AddDocument(ctx context.Context, doc domain.Document, chunks []domain.EmbeddedChunk) (bool, error)
	RemoveDocument(ctx context.Context, filename string) (bool, error)
	Clear(ctx context.Context) error
	HasDocument(filename string) bool
	Filenames() map[string]struct{}
	ListDocuments() []domain.Document
}

// Ingester turns document files into embedded chunks in the store.
type Ingester struct {
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     DocumentStore
	uploadDir string
	cleanText bool
	now       func() time.Time

	// scanMu serialises folder reconciliation runs.
	scanMu sync.Mutex
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithUploadDir sets the folder uploaded files are written to and removed from.
func WithUploadDir(dir string) IngesterOption {
	return func(i *Ingester) { i.uploadDir = dir }
}

// WithCleanText toggles whitespace and control character normalisation of extracted text.
func WithCleanText(enabled bool) IngesterOption {
	return func(i *Ingester) { i.cleanText = enabled }
}

// withClock overrides the ingestion timestamp source.
func withClock(now func() time.Time) IngesterOption {
	return func(i *Ingester) { i.now = now }
}

// NewIngester creates an ingester writing into store. Text cleaning is on by default.
func NewIngester(extractor domain.Extractor, chunker domain.Chunker, embedder domain.Embedder, store DocumentStore, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		cleanText: true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// UploadDir returns the configured upload folder, possibly empty.
func (i *Ingester) UploadDir() string { return i.uploadDir }

// IngestFile ingests the file at path under its base name.
func (i *Ingester) IngestFile(ctx context.Context, path string) domain.IngestOutcome {
	filename := filepath.Base(path)
	if out, done := i.precheck(filename); done {
		return out
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failed(filename, fmt.Errorf("read file: %w", err))
	}
	return i.ingest(ctx, filename, data)
}

// IngestUpload ingests raw bytes received for filename. When an upload folder
// is configured the file is saved there first so later scans recognise it.
func (i *Ingester) IngestUpload(ctx context.Context, filename string, data []byte) domain.IngestOutcome {
	name, err := uploadName(filename)
	if err != nil {
		return failed(filename, err)
	}
	if out, done := i.precheck(name); done {
		return out
	}

	var saved string
	if i.uploadDir != "" {
		if saved, err = i.saveUpload(name, data); err != nil {
			return failed(name, err)
		}
	}
	out := i.ingest(ctx, name, data)
	if out.Status == domain.StatusError && saved != "" {
		if err := os.Remove(saved); err != nil {
			logger.Warn("remove failed upload %s: %v", saved, err)
		}
	}
	return out
}

// ScanFolder ingests every supported file in dir that the store does not
// hold yet. Files already stored are reported as skipped; a failure on one
// file never stops the others. A missing folder yields an empty report.
func (i *Ingester) ScanFolder(ctx context.Context, dir string) domain.IngestReport {
	i.scanMu.Lock()
	defer i.scanMu.Unlock()

	report := domain.NewIngestReport()
	present, err := listDocuments(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("scan folder %s does not exist", dir)
		} else {
			logger.Error("scan folder %s: %v", dir, err)
		}
		return report
	}

	stored := i.store.Filenames()
	for _, name := range present {
		if err := ctx.Err(); err != nil {
			logger.Warn("scan of %s interrupted: %v", dir, err)
			break
		}
		if _, ok := stored[name]; ok {
			report.Add(skipped(name))
			continue
		}
		out := i.IngestFile(ctx, filepath.Join(dir, name))
		logOutcome(out)
		report.Add(out)
	}
	logger.Info("scan %s: %d processed, %d skipped, %d errors, %d chunks",
		dir, len(report.Processed), len(report.Skipped), len(report.Errors), report.TotalChunks)
	return report
}

// DeleteDocument removes filename from the store and its uploaded copy.
// An absent filename is not an error: removed is false and any file left in
// the upload folder under that name is still deleted.
func (i *Ingester) DeleteDocument(ctx context.Context, filename string) (removed bool, err error) {
	removed, err = i.store.RemoveDocument(ctx, filename)
	if err != nil {
		return false, err
	}
	i.removeUpload(filename)
	return removed, nil
}

// ClearAll removes every document and every uploaded file. It returns the
// number of documents removed.
func (i *Ingester) ClearAll(ctx context.Context) (int, error) {
	n := len(i.store.ListDocuments())
	if err := i.store.Clear(ctx); err != nil {
		return 0, err
	}
	if i.uploadDir != "" {
		names, err := listDocuments(i.uploadDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("list uploads: %v", err)
		}
		for _, name := range names {
			i.removeUpload(name)
		}
	}
	return n, nil
}

// Inspection describes the text a file would contribute.
type Inspection struct {
	Filename   string
	Type       domain.DocumentType
	Characters int
	Words      int
	Chunks     int
}

// Inspect extracts and chunks the file at path without storing anything.
func (i *Ingester) Inspect(path string) (Inspection, error) {
	filename := filepath.Base(path)
	t, ok := fileType(filename)
	if !ok {
		return Inspection{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, t)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Inspection{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return Inspection{}, err
	}
	text, err := i.extractText(data, t)
	if err != nil {
		return Inspection{}, err
	}
	st := extract.Stats(text)
	return Inspection{
		Filename:   filename,
		Type:       t,
		Characters: st.Characters,
		Words:      st.Words,
		Chunks:     len(i.chunker.Chunk(filename, text)),
	}, nil
}

// precheck handles duplicates and unsupported types before any I/O.
func (i *Ingester) precheck(filename string) (domain.IngestOutcome, bool) {
	if i.store.HasDocument(filename) {
		return skipped(filename), true
	}
	if t, ok := fileType(filename); !ok {
		return failed(filename, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, t)), true
	}
	return domain.IngestOutcome{}, false
}

func (i *Ingester) ingest(ctx context.Context, filename string, data []byte) domain.IngestOutcome {
	t, _ := domain.ParseDocumentType(filename)
	text, err := i.extractText(data, t)
	if err != nil {
		return failed(filename, err)
	}

	chunks := i.chunker.Chunk(filename, text)
	doc := domain.Document{Filename: filename, Size: int64(len(data)), IngestedAt: i.now().UTC()}

	var embedded []domain.EmbeddedChunk
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for j, c := range chunks {
			texts[j] = c.Text
		}
		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return failed(filename, err)
		}
		if len(vectors) != len(chunks) {
			return failed(filename, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(chunks)))
		}
		embedded = make([]domain.EmbeddedChunk, len(chunks))
		for j := range chunks {
			embedded[j] = domain.EmbeddedChunk{Chunk: chunks[j], Vector: vectors[j]}
		}
	}

	added, err := i.store.AddDocument(ctx, doc, embedded)
	if err != nil {
		return failed(filename, err)
	}
	if !added {
		return skipped(filename)
	}
	out := domain.IngestOutcome{Filename: filename, Status: domain.StatusProcessed, ChunkCount: len(chunks)}
	if len(chunks) == 0 {
		out.Warning = NoTextWarning
	}
	return out
}

func (i *Ingester) extractText(data []byte, t domain.DocumentType) (string, error) {
	text, err := i.extractor.Extract(data, t)
	if err != nil {
		return "", err
	}
	if i.cleanText {
		text = extract.Clean(text)
	}
	return text, nil
}

func (i *Ingester) saveUpload(name string, data []byte) (string, error) {
	if err := os.MkdirAll(i.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(i.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (i *Ingester) removeUpload(filename string) {
	if i.uploadDir == "" {
		return
	}
	name, err := uploadName(filename)
	if err != nil {
		return
	}
	err = os.Remove(filepath.Join(i.uploadDir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("remove upload %s: %v", name, err)
	}
}

// uploadName reduces a client supplied name to a safe base name.
func uploadName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: filename %q", domain.ErrInvalidInput, filename)
	}
	return name, nil
}

// listDocuments returns the names of supported, visible regular files in dir.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !IsCandidate(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// IsCandidate reports whether name is a visible file with a supported extension.
func IsCandidate(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := fileType(name)
	return ok
}

// fileType resolves the document type from the extension of name only.
func fileType(name string) (domain.DocumentType, bool) {
	if filepath.Ext(name) == "" {
		return "", false
	}
	return domain.ParseDocumentType(name)
}

func skipped(filename string) domain.IngestOutcome {
	return domain.IngestOutcome{
		Filename: filename,
		Status:   domain.StatusSkipped,
		Reason:   domain.ErrorKind(domain.ErrDuplicateDocument) + ": already ingested",
	}
}

func failed(filename string, err error) domain.IngestOutcome {
	return domain.IngestOutcome{
		Filename: filename,
		Status:   domain.StatusError,
		Reason:   fmt.Sprintf("%s: %v", domain.ErrorKind(err), err),
	}
}

func logOutcome(out domain.IngestOutcome) {
	switch out.Status {
	case domain.StatusProcessed:
		if out.Warning != "" {
			logger.Warn("ingested %s with 0 chunks: %s", out.Filename, out.Warning)
			return
		}
		logger.Info("ingested %s (%d chunks)", out.Filename, out.ChunkCount)
	case domain.StatusError:
		logger.Error("ingest %s failed: %s", out.Filename, out.Reason)
	}
}
