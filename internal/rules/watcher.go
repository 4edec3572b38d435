// internal/rules/watcher.go
package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// DefaultReloadDebounce batches the burst of events editors emit on save.
const DefaultReloadDebounce = 200 * time.Millisecond

// FileWatcher reloads a rules file into a Store whenever it changes on disk.
// The containing directory is watched so that atomic rename-on-save editors
// are picked up as well.
type FileWatcher struct {
	logger   *zap.Logger
	path     string
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration

	reloads  atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewFileWatcher creates a watcher for path feeding store.
func NewFileWatcher(path string, store *Store, logger *zap.Logger) (*FileWatcher, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand rules path %s: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules path %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &FileWatcher{
		logger:   logger.Named("rules-watcher"),
		path:     abs,
		store:    store,
		watcher:  w,
		debounce: DefaultReloadDebounce,
	}, nil
}

// SetDebounce overrides the reload debounce. It must be called before Start.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	if d > 0 {
		fw.debounce = d
	}
}

// Start begins watching in a background goroutine.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch rules directory %s: %w", dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel
	fw.doneCh = make(chan struct{})
	fw.running = true

	fw.logger.Info("Watching rules file for changes.", zap.String("path", fw.path))
	go fw.run(runCtx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		_ = fw.watcher.Close()
		return
	}
	fw.running = false
	cancel, done := fw.cancel, fw.doneCh
	fw.mu.Unlock()

	cancel()
	<-done
	if err := fw.watcher.Close(); err != nil {
		fw.logger.Warn("Error closing rules watcher.", zap.Error(err))
	}
}

// Reloads returns how many times the rules were successfully reloaded.
func (fw *FileWatcher) Reloads() int64 { return fw.reloads.Load() }

// Failures returns how many reload attempts were rejected.
func (fw *FileWatcher) Failures() int64 { return fw.failures.Load() }

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	timer := time.NewTimer(fw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			fw.logger.Debug("Rules file event.", zap.String("op", event.Op.String()))
			timer.Reset(fw.debounce)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("Rules watcher error.", zap.Error(err))

		case <-timer.C:
			fw.reload()
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != fw.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// reload keeps the previous rules when the file cannot be loaded.
func (fw *FileWatcher) reload() {
	rs, err := LoadFile(fw.path)
	if err != nil {
		fw.failures.Add(1)
		fw.logger.Warn("Rules reload failed; keeping previous rules.", zap.Error(err))
		return
	}
	fw.store.Swap(rs)
	fw.reloads.Add(1)
	fw.logger.Info("Rules reloaded.",
		zap.Int("filtered_namespaces", len(rs.FilteredNamespaces)),
		zap.Int("highlighted_namespaces", len(rs.HighlightedNamespaces)),
	)
}
