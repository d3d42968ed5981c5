package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-reads the config overlay file when it changes and hands
// the merged result to a callback. Only overlay-able settings change at
// runtime; the server address and backends are fixed at startup.
type Watcher struct {
	base     *Config
	path     string
	onChange func(*Config)
	logger   *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given overlay file
func NewWatcher(base *Config, path string, onChange func(*Config), logger *zap.Logger) *Watcher {
	return &Watcher{base: base, path: path, onChange: onChange, logger: logger}
}

// Start begins watching until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fsw
	w.mu.Unlock()

	go w.run(ctx, fsw)
	w.logger.Info("watching config overlay", zap.String("path", w.path))
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	updated := *w.base
	if err := updated.ApplyOverlay(w.path); err != nil {
		w.logger.Warn("ignoring invalid config overlay", zap.Error(err))
		return
	}
	if err := updated.Validate(); err != nil {
		w.logger.Warn("ignoring config overlay failing validation", zap.Error(err))
		return
	}
	w.logger.Info("config overlay reloaded", zap.String("path", w.path))
	w.onChange(&updated)
}
