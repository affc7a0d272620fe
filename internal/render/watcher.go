package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cvforge/internal/errors"
	"cvforge/internal/observability"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher reloads the renderer whenever its template file changes
// on disk. Events are debounced so editors that write in several bursts
// trigger one reload.
type TemplateWatcher struct {
	mu sync.RWMutex

	renderer      *Renderer
	lastModTime   time.Time
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	metrics *observability.Metrics
	running bool
}

// NewTemplateWatcher wires a watcher to a renderer. A zero debounce gets
// a one second default.
func NewTemplateWatcher(renderer *Renderer, debounceDelay time.Duration, logger *errors.Logger) *TemplateWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &TemplateWatcher{
		renderer:      renderer,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// SetMetrics attaches reload counters. Call before Start.
func (w *TemplateWatcher) SetMetrics(m *observability.Metrics) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics = m
}

// Start begins watching the template file.
func (w *TemplateWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("template watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	path := w.renderer.TemplatePath()
	if stat, err := os.Stat(path); err == nil {
		w.lastModTime = stat.ModTime()
	}

	if err := w.fsWatcher.Add(path); err != nil {
		_ = w.fsWatcher.Close()
		return fmt.Errorf("failed to watch template %s: %w", path, err)
	}
	// The directory too, to catch atomic writes (rename operations).
	if err := w.fsWatcher.Add(filepath.Dir(path)); err != nil && w.logger != nil {
		w.logger.Warn("Failed to watch template directory for atomic writes",
			"directory", filepath.Dir(path), "error", err)
	}

	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Template file watcher started",
			"template", path,
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher.
func (w *TemplateWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher")
		}
		return err
	}
	w.running = false

	if w.logger != nil {
		w.logger.Info("Template file watcher stopped")
	}
	return nil
}

// IsRunning reports whether the watcher loop is active.
func (w *TemplateWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *TemplateWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Template watcher error")
			}

		case <-w.reloadChan:
			w.reload()

		case <-w.stopChan:
			return
		}
	}
}

// reload refreshes the renderer when the template's mtime moved forward,
// keeping the previous template on a failed read.
func (w *TemplateWatcher) reload() {
	if !w.hasTemplateChanged() {
		return
	}
	if w.logger != nil {
		w.logger.Info("Template changed on disk, reloading",
			"template", w.renderer.TemplatePath())
	}
	err := w.renderer.Reload()
	if err != nil && w.logger != nil {
		w.logger.LogError(err, "Template reload failed, keeping previous template")
	}
	if w.metrics != nil {
		w.metrics.RecordTemplateReload(context.Background(), err == nil)
	}
}

func (w *TemplateWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	path := w.renderer.TemplatePath()
	if event.Name != path && filepath.Base(event.Name) != filepath.Base(path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *TemplateWatcher) hasTemplateChanged() bool {
	stat, err := os.Stat(w.renderer.TemplatePath())
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.ModTime().After(w.lastModTime) {
		w.lastModTime = stat.ModTime()
		return true
	}
	return false
}

func (w *TemplateWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
