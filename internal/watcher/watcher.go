// Package watcher triggers folder reconciliation when documents appear or change.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"docrag/internal/logger"
	"docrag/internal/service"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a single directory and calls onChange once per burst of
// relevant events.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func(ctx context.Context)
	ready    chan struct{}
}

// New creates a watcher for dir.
func New(dir string, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, debounce: debounce, onChange: onChange, ready: make(chan struct{})}
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run blocks until ctx is done. The directory is created if missing.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	close(w.ready)
	logger.Info("watching %s (debounce %s)", w.dir, w.debounce)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("watch event %s %s", ev.Op, ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case <-fire:
			fire = nil
			w.onChange(ctx)
		}
	}
}

// relevant reports whether ev can change the set of ingestable documents.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if !service.IsCandidate(filepath.Base(ev.Name)) {
		return false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return false
	}
	return true
}
