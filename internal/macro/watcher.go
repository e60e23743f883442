package macro

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vantrack/screenwatch/internal/logging"
)

// debounceWindow coalesces the burst of fsnotify events an editor save or
// atomic rename produces into a single reload
const debounceWindow = 250 * time.Millisecond

// Watcher reloads the registry when definition files change on disk, so
// externally edited macros take effect without a restart.
type Watcher struct {
	registry *Registry
	log      *logging.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a watcher over the registry's macros directory
func NewWatcher(registry *Registry) *Watcher {
	return &Watcher{
		registry: registry,
		log:      logging.New("watcher"),
	}
}

// Start begins watching; events are handled on a background goroutine until
// Stop is called
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsw.Add(w.registry.Dir()); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.registry.Dir(), err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.stopped = false
	w.mu.Unlock()

	go w.loop(fsw)
	w.log.Infof("watching %s for macro changes", w.registry.Dir())
	return nil
}

// Stop ends the watch and cancels any pending reload
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("filesystem watch error: %v", err)
		}
	}
}

// scheduleReload (re)arms the debounce timer
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, func() {
		if err := w.registry.Reload(); err != nil {
			w.log.Error("macro reload after filesystem change failed", err)
		}
	})
}

func isDefinitionFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false // skip our own atomic-write temp files
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yaml" || ext == ".yml"
}
