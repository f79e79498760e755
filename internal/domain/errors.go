package domain

import "errors"

// Error kinds surfaced by the ingestion and query paths.
var (
	// ErrUnsupportedFormat indicates a declared document type the extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptDocument indicates the document container could not be parsed at all.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrEmbeddingUnavailable indicates the embedding model could not be reached or loaded.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRetrievalUnavailable indicates query-time retrieval failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationUnavailable indicates the LLM endpoint failed or timed out.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrDuplicateDocument indicates a filename already present in the store.
	// Ingestion treats it as a skip rather than a failure.
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrStoreCorrupt indicates the persisted store state is unreadable.
	ErrStoreCorrupt = errors.New("store corrupt")

	// ErrDimensionMismatch indicates a vector whose length differs from the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrUnsupportedFormat, "UnsupportedFormat"},
	{ErrCorruptDocument, "CorruptDocument"},
	{ErrEmbeddingUnavailable, "EmbeddingUnavailable"},
	{ErrRetrievalUnavailable, "RetrievalUnavailable"},
	{ErrGenerationUnavailable, "GenerationUnavailable"},
	{ErrDuplicateDocument, "DuplicateDocument"},
	{ErrStoreCorrupt, "StoreCorrupt"},
	{ErrDimensionMismatch, "DimensionMismatch"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrNotFound, "NotFound"},
}

// ErrorKind returns the kind name of the first known sentinel wrapped by err.
// RetrievalUnavailable and GenerationUnavailable take precedence over the
// causes they wrap, so callers see the stage that failed.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrRetrievalUnavailable) {
		return "RetrievalUnavailable"
	}
	if errors.Is(err, ErrGenerationUnavailable) {
		return "GenerationUnavailable"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
