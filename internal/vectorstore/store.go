// Package vectorstore holds embedded chunks in memory, answers brute-force
// cosine similarity queries and persists every mutation through a Persister.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// DefaultTopK is used by Search when k <= 0.
const DefaultTopK = 5

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("vector store closed")

// chunkMeta identifies the document and position of a stored chunk.
type chunkMeta struct {
	filename string
	ordinal  int
}

// state is an immutable view of the store. Mutations build a new state;
// vectors, texts, meta and norms always have the same length.
type state struct {
	docs      []domain.Document
	docIndex  map[string]int
	texts     []string
	vectors   [][]float32
	meta      []chunkMeta
	norms     []float64
	dimension int
}

func emptyState() *state {
	return &state{docIndex: map[string]int{}}
}

func (st *state) consistent() bool {
	n := len(st.vectors)
	return len(st.texts) == n && len(st.meta) == n && len(st.norms) == n
}

// Store is an in-process vector store. It is safe for concurrent use:
// writers are serialised and readers see a consistent state without
// waiting on persistence.
type Store struct {
	persister Persister
	model     string
	dimension int
	defaultK  int

	writeMu sync.Mutex
	closed  bool

	mu  sync.RWMutex
	cur *state
}

// Option configures a Store.
type Option func(*Store)

// WithModel records the embedding model name in snapshots. A persisted
// snapshot from a different model is discarded on Open.
func WithModel(name string) Option {
	return func(s *Store) { s.model = name }
}

// WithDimension records the vector dimension the embedder produces. A
// persisted snapshot with a different dimension is discarded on Open.
func WithDimension(dim int) Option {
	return func(s *Store) {
		if dim > 0 {
			s.dimension = dim
		}
	}
}

// WithDefaultTopK sets the result count used when Search is called with k <= 0.
func WithDefaultTopK(k int) Option {
	return func(s *Store) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// New returns an empty store persisting through p.
func New(p Persister, opts ...Option) *Store {
	s := &Store{persister: p, defaultK: DefaultTopK, cur: emptyState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store initialised from the snapshot p holds. A missing,
// unreadable or inconsistent snapshot yields an empty store.
func Open(p Persister, opts ...Option) *Store {
	s := New(p, opts...)
	snap, err := p.Load()
	switch {
	case err != nil:
		logger.Warn("vector store unreadable, starting empty: %v", err)
		return s
	case snap == nil:
		return s
	}
	if s.model != "" && snap.Model != "" && snap.Model != s.model {
		logger.Warn("vector store built with model %q, configured %q; starting empty", snap.Model, s.model)
		return s
	}
	if s.dimension > 0 && snap.Dimension != 0 && snap.Dimension != s.dimension {
		logger.Warn("vector store holds %d-dimensional vectors, embedder produces %d; starting empty", snap.Dimension, s.dimension)
		return s
	}
	st, err := fromSnapshot(snap)
	if err != nil {
		logger.Warn("vector store snapshot rejected, starting empty: %v", err)
		return s
	}
	s.cur = st
	logger.Debug("vector store loaded: %d documents, %d chunks", len(st.docs), len(st.vectors))
	return s
}

func (s *Store) load() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) publish(st *state) {
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()
}

// commit persists next and only then makes it visible. Callers hold writeMu.
func (s *Store) commit(next *state) error {
	if !next.consistent() {
		return fmt.Errorf("vector store invariant violated: %d vectors, %d texts, %d meta",
			len(next.vectors), len(next.texts), len(next.meta))
	}
	if err := s.persister.Save(s.snapshot(next)); err != nil {
		return fmt.Errorf("persist vector store: %w", err)
	}
	s.publish(next)
	return nil
}

// AddDocument stores doc together with its chunks as one atomic mutation.
// It returns false without error when a document with the same filename is
// already stored.
func (s *Store) AddDocument(ctx context.Context, doc domain.Document, chunks []domain.EmbeddedChunk) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if doc.Filename == "" {
		return false, fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	cur := s.load()
	if _, ok := cur.docIndex[doc.Filename]; ok {
		return false, nil
	}
	dim := cur.dimension
	for i, c := range chunks {
		if c.Chunk.Filename != doc.Filename {
			return false, fmt.Errorf("%w: chunk %d belongs to %q, not %q", domain.ErrInvalidInput, i, c.Chunk.Filename, doc.Filename)
		}
		if len(c.Vector) == 0 {
			return false, fmt.Errorf("%w: chunk %d has an empty vector", domain.ErrInvalidInput, i)
		}
		if dim == 0 {
			dim = len(c.Vector)
		}
		if len(c.Vector) != dim {
			return false, fmt.Errorf("%w: chunk %d has %d dimensions, store has %d", domain.ErrDimensionMismatch, i, len(c.Vector), dim)
		}
	}

	doc.ChunkCount = len(chunks)
	n := len(cur.vectors) + len(chunks)
	next := &state{
		docs:      append(slices.Clip(cur.docs), doc),
		docIndex:  make(map[string]int, len(cur.docIndex)+1),
		texts:     make([]string, 0, n),
		vectors:   make([][]float32, 0, n),
		meta:      make([]chunkMeta, 0, n),
		norms:     make([]float64, 0, n),
		dimension: dim,
	}
	for k, v := range cur.docIndex {
		next.docIndex[k] = v
	}
	next.docIndex[doc.Filename] = len(next.docs) - 1
	next.texts = append(next.texts, cur.texts...)
	next.vectors = append(next.vectors, cur.vectors...)
	next.meta = append(next.meta, cur.meta...)
	next.norms = append(next.norms, cur.norms...)
	for _, c := range chunks {
		v := slices.Clone(c.Vector)
		next.texts = append(next.texts, c.Chunk.Text)
		next.vectors = append(next.vectors, v)
		next.meta = append(next.meta, chunkMeta{filename: doc.Filename, ordinal: c.Chunk.Index})
		next.norms = append(next.norms, norm(v))
	}

	if err := s.commit(next); err != nil {
		return false, err
	}
	logger.Debug("stored %s with %d chunks", doc.Filename, len(chunks))
	return true, nil
}

// RemoveDocument deletes filename and all of its chunks. It reports whether
// anything was removed.
func (s *Store) RemoveDocument(ctx context.Context, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	cur := s.load()
	if _, ok := cur.docIndex[filename]; !ok {
		return false, nil
	}
	next := emptyState()
	for _, d := range cur.docs {
		if d.Filename == filename {
			continue
		}
		next.docIndex[d.Filename] = len(next.docs)
		next.docs = append(next.docs, d)
	}
	for i, m := range cur.meta {
		if m.filename == filename {
			continue
		}
		next.texts = append(next.texts, cur.texts[i])
		next.vectors = append(next.vectors, cur.vectors[i])
		next.meta = append(next.meta, m)
		next.norms = append(next.norms, cur.norms[i])
	}
	if len(next.vectors) > 0 {
		next.dimension = cur.dimension
	}

	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every document.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.commit(emptyState())
}

// ListDocuments returns stored documents in insertion order.
func (s *Store) ListDocuments() []domain.Document {
	return slices.Clone(s.load().docs)
}

// HasDocument reports whether filename is stored.
func (s *Store) HasDocument(filename string) bool {
	_, ok := s.load().docIndex[filename]
	return ok
}

// Filenames returns the set of stored filenames.
func (s *Store) Filenames() map[string]struct{} {
	st := s.load()
	out := make(map[string]struct{}, len(st.docs))
	for _, d := range st.docs {
		out[d.Filename] = struct{}{}
	}
	return out
}

// Len returns the number of stored chunks.
func (s *Store) Len() int { return len(s.load().vectors) }

// Stats summarises the store contents.
func (s *Store) Stats() domain.StoreStats {
	st := s.load()
	return domain.StoreStats{
		Documents: len(st.docs),
		Chunks:    len(st.vectors),
		Dimension: st.dimension,
		Model:     s.model,
	}
}

// Search returns at most k chunks ranked by cosine similarity to query,
// highest first. Equal scores keep insertion order.
func (s *Store) Search(query []float32, k int) ([]domain.SearchResult, error) {
	st := s.load()
	if len(st.vectors) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != st.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", domain.ErrDimensionMismatch, len(query), st.dimension)
	}
	if k <= 0 {
		k = s.defaultK
	}

	qn := norm(query)
	scores := make([]float64, len(st.vectors))
	for i, v := range st.vectors {
		scores[i] = cosine(v, st.norms[i], query, qn)
	}
	idxs := argsortDesc(scores)
	k = min(k, len(idxs))
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				Filename: st.meta[j].filename,
				Index:    st.meta[j].ordinal,
				Text:     st.texts[j],
			},
			Score: scores[j],
		})
	}
	return results, nil
}

// Close flushes the current state and closes the persister.
func (s *Store) Close(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	} else if err := s.persister.Save(s.snapshot(s.load())); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
	}
	if err := s.persister.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) snapshot(st *state) *Snapshot {
	snap := &Snapshot{
		Version:   SnapshotVersion,
		Model:     s.model,
		Dimension: st.dimension,
		Documents: make([]DocumentRecord, len(st.docs)),
		Chunks:    make([]ChunkRecord, len(st.vectors)),
	}
	for i, d := range st.docs {
		snap.Documents[i] = DocumentRecord{
			Filename:   d.Filename,
			Size:       d.Size,
			ChunkCount: d.ChunkCount,
			IngestedAt: d.IngestedAt,
		}
	}
	for i := range st.vectors {
		snap.Chunks[i] = ChunkRecord{
			Filename: st.meta[i].filename,
			Ordinal:  st.meta[i].ordinal,
			Text:     st.texts[i],
			Vector:   st.vectors[i],
		}
	}
	return snap
}

// fromSnapshot rebuilds a state, rejecting snapshots that break the store invariants.
func fromSnapshot(snap *Snapshot) (*state, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrStoreCorrupt, snap.Version)
	}
	st := emptyState()
	for _, d := range snap.Documents {
		if d.Filename == "" {
			return nil, fmt.Errorf("%w: document without filename", domain.ErrStoreCorrupt)
		}
		if _, dup := st.docIndex[d.Filename]; dup {
			return nil, fmt.Errorf("%w: duplicate document %q", domain.ErrStoreCorrupt, d.Filename)
		}
		st.docIndex[d.Filename] = len(st.docs)
		st.docs = append(st.docs, domain.Document{
			Filename:   d.Filename,
			Size:       d.Size,
			ChunkCount: d.ChunkCount,
			IngestedAt: d.IngestedAt,
		})
	}
	counts := make(map[string]int, len(st.docs))
	for i, c := range snap.Chunks {
		if _, ok := st.docIndex[c.Filename]; !ok {
			return nil, fmt.Errorf("%w: chunk %d references unknown document %q", domain.ErrStoreCorrupt, i, c.Filename)
		}
		if len(c.Vector) == 0 || len(c.Vector) != snap.Dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, snapshot has %d", domain.ErrStoreCorrupt, i, len(c.Vector), snap.Dimension)
		}
		counts[c.Filename]++
		st.texts = append(st.texts, c.Text)
		st.vectors = append(st.vectors, c.Vector)
		st.meta = append(st.meta, chunkMeta{filename: c.Filename, ordinal: c.Ordinal})
		st.norms = append(st.norms, norm(c.Vector))
	}
	for _, d := range st.docs {
		if counts[d.Filename] != d.ChunkCount {
			return nil, fmt.Errorf("%w: document %q lists %d chunks, found %d", domain.ErrStoreCorrupt, d.Filename, d.ChunkCount, counts[d.Filename])
		}
	}
	if len(st.vectors) > 0 {
		st.dimension = snap.Dimension
	}
	if !st.consistent() {
		return nil, fmt.Errorf("%w: misaligned chunk arrays", domain.ErrStoreCorrupt)
	}
	return st, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b given their norms; zero
// vectors score 0.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum / (an * bn)
}

// argsortDesc returns indexes ordered by descending value; equal values keep index order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	slices.SortStableFunc(idxs, func(a, b int) int {
		switch {
		case vals[a] > vals[b]:
			return -1
		case vals[a] < vals[b]:
			return 1
		}
		return 0
	})
	return idxs
}
