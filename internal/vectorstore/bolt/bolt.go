// Package bolt persists store snapshots in a bbolt database.
package bolt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"docrag/internal/vectorstore"
)

// FileName is the database file inside the store directory.
const FileName = "store.db"

var (
	bucketName  = []byte("snapshot")
	snapshotKey = []byte("state")
)

// Ensure Persister implements the interface.
var _ vectorstore.Persister = (*Persister)(nil)

// Persister keeps the snapshot under a single key; each save is one transaction.
type Persister struct {
	db *bbolt.DB
}

// New opens or creates <dir>/store.db.
func New(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(dir, FileName), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Persister{db: db}, nil
}

// Load decodes the stored snapshot; an empty bucket is not an error.
func (p *Persister) Load() (*vectorstore.Snapshot, error) {
	var snap *vectorstore.Snapshot
	err := p.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		data := b.Get(snapshotKey)
		if data == nil {
			return nil
		}
		s, err := vectorstore.DecodeSnapshot(bytes.NewReader(data))
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	return snap, err
}

// Save replaces the stored snapshot in one transaction.
func (p *Persister) Save(s *vectorstore.Snapshot) error {
	var buf bytes.Buffer
	if err := vectorstore.EncodeSnapshot(&buf, s); err != nil {
		return err
	}
	return p.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(snapshotKey, buf.Bytes())
	})
}

// Close releases the database file lock.
func (p *Persister) Close() error { return p.db.Close() }
