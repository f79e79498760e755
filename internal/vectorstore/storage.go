package vectorstore

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"docrag/internal/domain"
)

// SnapshotVersion is the layout version written by this build.
const SnapshotVersion = 1

// DocumentRecord is the persisted form of a document.
type DocumentRecord struct {
	Filename   string
	Size       int64
	ChunkCount int
	IngestedAt time.Time
}

// ChunkRecord is the persisted form of one embedded chunk.
type ChunkRecord struct {
	Filename string
	Ordinal  int
	Text     string
	Vector   []float32
}

// Snapshot is the complete persisted state of a store.
type Snapshot struct {
	Version   int
	Model     string
	Dimension int
	Documents []DocumentRecord
	Chunks    []ChunkRecord
}

// Persister stores and retrieves whole snapshots. Save must replace the
// previous snapshot atomically: a reader after a crash sees either the old
// or the new snapshot, never a mix.
type Persister interface {
	// Load returns the last saved snapshot, or nil when nothing was saved yet.
	// An unreadable snapshot is reported with domain.ErrStoreCorrupt.
	Load() (*Snapshot, error)
	Save(s *Snapshot) error
	Close() error
}

// EncodeSnapshot writes s in gob encoding.
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a gob-encoded snapshot. Any decode failure wraps
// domain.ErrStoreCorrupt.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreCorrupt, err)
	}
	return &s, nil
}
