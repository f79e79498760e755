// Package file persists store snapshots as a gob file replaced atomically.
package file

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"docrag/internal/vectorstore"
)

// FileName is the snapshot file inside the store directory.
const FileName = "store.gob"

// Ensure Persister implements the interface.
var _ vectorstore.Persister = (*Persister)(nil)

// Persister writes snapshots to <dir>/store.gob.
type Persister struct {
	dir string
}

// New creates the store directory if needed.
func New(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Persister{dir: dir}, nil
}

// Path returns the snapshot file path.
func (p *Persister) Path() string { return filepath.Join(p.dir, FileName) }

// Load reads the snapshot; a missing file is not an error.
func (p *Persister) Load() (*vectorstore.Snapshot, error) {
	f, err := os.Open(p.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return vectorstore.DecodeSnapshot(bufio.NewReader(f))
}

// Save writes the snapshot to a temporary file in the same directory, syncs
// it, renames it over the previous snapshot and syncs the directory.
func (p *Persister) Save(s *vectorstore.Snapshot) error {
	tmp := p.Path() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := vectorstore.EncodeSnapshot(w, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	if err := syncDir(p.dir); err != nil {
		return fmt.Errorf("sync store dir: %w", err)
	}
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Close is a no-op; every Save leaves the file complete.
func (p *Persister) Close() error { return nil }
