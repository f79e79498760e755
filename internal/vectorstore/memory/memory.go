// Package memory provides a non-durable Persister that keeps the last
// snapshot in process memory.
package memory

import (
	"sync"

	"docrag/internal/vectorstore"
)

// Ensure Persister implements the interface.
var _ vectorstore.Persister = (*Persister)(nil)

// Persister holds the most recently saved snapshot.
type Persister struct {
	mu    sync.RWMutex
	snap  *vectorstore.Snapshot
	saves int
}

// NewPersister returns a persister holding no snapshot.
func NewPersister() *Persister { return &Persister{} }

// Load returns the last saved snapshot, or nil.
func (p *Persister) Load() (*vectorstore.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap, nil
}

// Save keeps s as the current snapshot.
func (p *Persister) Save(s *vectorstore.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = s
	p.saves++
	return nil
}

// Saves returns how many snapshots were saved.
func (p *Persister) Saves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saves
}

// Close is a no-op.
func (p *Persister) Close() error { return nil }
