package catalog

import (
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a Catalog when its backing JSON files change on disk.
// This only matters to a process that serves many scans over its lifetime;
// a one-shot CLI scan never observes a reload mid-flight. Mirrors internal/policy/loader.go's WatchConfig/watchLoop in
// the teacher: watch the containing directory rather than the files
// themselves, to tolerate editor rename-and-replace saves.
type Watcher struct {
	mu               sync.Mutex
	watcher          *fsnotify.Watcher
	done             chan struct{}
	patternsPath     string
	blocklistPath    string
	popularNamesPath string
	logger           *slog.Logger
	current          atomic.Pointer[Catalog]
}

// NewWatcher loads the catalog once and starts watching its source files
// for changes. Call Current to fetch the latest compiled Catalog and
// Stop to release the fsnotify handle.
func NewWatcher(patternsPath, blocklistPath, popularNamesPath string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cat, err := Load(patternsPath, blocklistPath, popularNamesPath, logger)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		patternsPath:     patternsPath,
		blocklistPath:    blocklistPath,
		popularNamesPath: popularNamesPath,
		logger:           logger.With("component", "catalog.Watcher"),
	}
	w.current.Store(cat)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		// Hot-reload is a convenience, not a requirement: fall back to the
		// statically loaded catalog rather than failing the whole scan
		// service over a filesystem-watch setup error.
		w.logger.Warn("failed to start catalog file watcher, hot-reload disabled", "error", err)
		return w, nil
	}
	for _, p := range []string{patternsPath, blocklistPath} {
		if err := fw.Add(filepath.Dir(p)); err != nil {
			w.logger.Warn("failed to watch catalog directory", "path", p, "error", err)
		}
	}
	w.watcher = fw
	w.done = make(chan struct{})
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded Catalog.
func (w *Watcher) Current() *Catalog {
	return w.current.Load()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(ev.Name)
			if abs != absOrEmpty(w.patternsPath) && abs != absOrEmpty(w.blocklistPath) && abs != absOrEmpty(w.popularNamesPath) {
				continue
			}
			cat, err := Load(w.patternsPath, w.blocklistPath, w.popularNamesPath, w.logger)
			if err != nil {
				w.logger.Error("catalog reload failed, keeping previous catalog", "error", err)
				continue
			}
			w.current.Store(cat)
			w.logger.Info("catalog reloaded", "path", abs)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error watching catalog", "error", err)
		}
	}
}

// Stop releases the underlying fsnotify watcher, if one was started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	_ = w.watcher.Close()
	<-w.done
	w.watcher = nil
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
