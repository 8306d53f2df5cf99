package catalog

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

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// importParallelism bounds concurrent ingests during a bulk folder import.
const importParallelism = 4

// settleDelay is how long the watcher waits after the last write event for a
// file before importing it, so partially copied files are not picked up.
const settleDelay = 500 * time.Millisecond

var importableExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// ImportStats summarizes a folder import.
type ImportStats struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// ScanFolder lists the importable image files directly inside dir.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read import folder: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if importableExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// ImportFolder ingests every importable file in dir, a bounded number at a
// time. Each file is imported independently; per-file failures are counted,
// not fatal. The file name without extension becomes the initial image name.
func (c *Catalog) ImportFolder(ctx context.Context, dir string, enrich bool) (*ImportStats, error) {
	paths, err := ScanFolder(dir)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		stats ImportStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importParallelism)
	for _, path := range paths {
		g.Go(func() error {
			err := c.importOne(gctx, path, enrich)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stats.Imported++
			case errors.Is(err, models.ErrDuplicateImage):
				stats.Duplicates++
			default:
				stats.Failed++
				logger.Warn("Folder import failed for file", logger.KeyPath, path, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Folder import finished",
		logger.KeyPath, dir,
		"imported", stats.Imported,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed)
	return &stats, nil
}

func (c *Catalog) importOne(ctx context.Context, path string, enrich bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	_, err = c.IngestBytes(ctx, IngestOptions{Name: name}, data, enrich)
	return err
}

// Watcher imports files dropped into a folder as they appear.
type Watcher struct {
	catalog *Catalog
	dir     string
	enrich  bool

	fsw       *fsnotify.Watcher
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a folder watcher (not yet started).
func NewWatcher(c *Catalog, dir string, enrich bool) *Watcher {
	return &Watcher{
		catalog:   c,
		dir:       dir,
		enrich:    enrich,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		pending:   make(map[string]*time.Timer),
	}
}

// Start begins watching the folder. The folder is created if missing and any
// files already present are imported first.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch folder: %w", err)
	}

	if _, err := w.catalog.ImportFolder(ctx, w.dir, w.enrich); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch folder: %w", err)
	}
	w.fsw = fsw

	go w.loop(ctx)

	logger.Info("Import folder watcher started", logger.KeyPath, w.dir)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
// Safe to call on a watcher that was never started.
func (w *Watcher) Stop() {
	if w.fsw == nil {
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.stoppedCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stoppedCh)
	defer w.fsw.Close()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Folder watcher error", "error", err)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// schedule (re)arms a settle timer for the path. Writers that stream a file
// in keep pushing the timer forward; the import runs once writes stop.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !importableExts[strings.ToLower(filepath.Ext(path))] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.importDropped(ctx, path)
	})
}

// importDropped ingests a settled file and removes it from the watch folder.
// Duplicates are consumed silently so re-dropping an existing image cleans
// itself up.
func (w *Watcher) importDropped(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	err := w.catalog.importOne(ctx, path, w.enrich)
	switch {
	case err == nil:
		logger.Info("Auto-imported dropped file", logger.KeyPath, path)
	case errors.Is(err, models.ErrDuplicateImage):
		logger.Debug("Dropped file is a duplicate", logger.KeyPath, path)
	default:
		logger.Warn("Failed to auto-import dropped file", logger.KeyPath, path, "error", err)
		return
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to remove imported file", logger.KeyPath, path, "error", err)
	}
}
