// Package watcher monitors the metadata inbox for import documents.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// importedSuffix marks documents that have been processed. Renaming instead
// of deleting keeps an audit trail in the inbox.
const importedSuffix = ".imported"

// ImportFunc processes one settled import document.
type ImportFunc func(ctx context.Context, path string) error

// InboxWatcher watches a flat inbox directory for JSON import documents.
// Files are debounced until their size and mtime stop changing, so a
// half-written drop from a scraper is never imported.
type InboxWatcher struct {
	dir      string
	settle   time.Duration
	importFn ImportFunc
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	pending map[string]*pendingFile
	mu      sync.Mutex

	ready chan string
	done  chan struct{}
	wg    sync.WaitGroup
}

// pendingFile tracks a document that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates an inbox watcher for dir. settle is how long a file must stay
// unchanged before it is considered complete.
func New(dir string, settle time.Duration, importFn ImportFunc, logger *slog.Logger) (*InboxWatcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &InboxWatcher{
		dir:      dir,
		settle:   settle,
		importFn: importFn,
		logger:   logger,
		watcher:  fsw,
		pending:  make(map[string]*pendingFile),
		ready:    make(chan string, 100),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the inbox until the context is cancelled. Documents already
// present when it starts are imported first, so drops made while the server
// was down are not lost.
func (w *InboxWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	w.logger.Info("watching metadata inbox", "dir", w.dir, "settle", w.settle)

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.processReady(ctx)

	if err := w.catchUp(); err != nil {
		w.logger.Warn("inbox catch-up scan failed", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Stop releases the watcher's resources.
func (w *InboxWatcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// catchUp queues every unprocessed document already in the inbox.
func (w *InboxWatcher) catchUp() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.isDocument(path) {
			continue
		}
		w.startSettling(path)
	}
	return nil
}

// isDocument reports whether path is an import document awaiting processing.
func (w *InboxWatcher) isDocument(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}

func (w *InboxWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *InboxWatcher) handleEvent(event fsnotify.Event) {
	if !w.isDocument(event.Name) {
		return
	}

	if event.Op&fsnotify.Remove != 0 {
		w.cancelPending(event.Name)
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
		w.startSettling(event.Name)
	}
}

// startSettling begins or restarts the settle timer for a document.
func (w *InboxWatcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settle, func() { w.checkSettled(path) })
	w.pending[path] = p
}

// checkSettled queues the document if it has stopped changing, otherwise
// restarts the timer.
func (w *InboxWatcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, exists := w.pending[path]
	if !exists {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.settle, func() { w.checkSettled(path) })
		return
	}

	delete(w.pending, path)

	select {
	case w.ready <- path:
	case <-w.done:
	}
}

func (w *InboxWatcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// processReady imports settled documents one at a time. Imports touch the
// shared tags table; serializing them keeps the upsert contention low.
func (w *InboxWatcher) processReady(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.ready:
			w.importDocument(ctx, path)
		}
	}
}

func (w *InboxWatcher) importDocument(ctx context.Context, path string) {
	if err := w.importFn(ctx, path); err != nil {
		w.logger.Error("failed to import document",
			"path", path,
			"error", err,
		)
		return
	}

	if err := os.Rename(path, path+importedSuffix); err != nil {
		w.logger.Warn("failed to mark document as imported",
			"path", path,
			"error", err,
		)
		return
	}

	w.logger.Info("document imported", "path", path)
}
