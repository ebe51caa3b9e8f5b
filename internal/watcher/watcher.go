// Package watcher re-triggers work when watched files change.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/philipparndt/citysolid/internal/logger"
	"go.uber.org/zap"
)

// FileWatcher watches files for changes and triggers a debounced callback.
// The parent directories are watched so that files replaced by rename are
// still seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	files    map[string]bool
	dirs     map[string]bool
	callback func(string)
	debounce time.Duration
	timer    *time.Timer
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
	}, nil
}

// Watch registers files. callback receives the path of the last changed
// file once no further change arrived for the debounce interval.
func (fw *FileWatcher) Watch(files []string, callback func(string)) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}

		dir := filepath.Dir(absPath)
		if !fw.dirs[dir] {
			if err := fw.watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			fw.dirs[dir] = true
		}
		fw.files[absPath] = true
	}

	fw.callback = callback
	return nil
}

// Run dispatches file events until ctx is done or the watcher is closed
func (fw *FileWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.handleFileChange(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

// handleFileChange restarts the debounce timer for a watched file
func (fw *FileWatcher) handleFileChange(filePath string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.files[filepath.Clean(filePath)] || fw.callback == nil {
		return
	}
	logger.Sugar.Debugf("%s changed", filePath)

	if fw.timer != nil {
		fw.timer.Stop()
	}
	callback := fw.callback
	fw.timer = time.AfterFunc(fw.debounce, func() {
		callback(filePath)
	})
}

// Close stops the watcher and any pending callback
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}
