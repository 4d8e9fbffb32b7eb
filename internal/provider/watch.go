package provider

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/trustproxy/proxysentry/internal/log"
	"github.com/trustproxy/proxysentry/internal/queue"
)

// WatchFileProvider wraps a FileProvider, reloading immediately whenever fsnotify reports a write
// to (or creation of) one of its candidate files. It does not also reload on a cadence.
type WatchFileProvider struct {
	inner  *FileProvider
	paths  []string
	logger *log.Logger
}

// NewWatchFileProvider constructs a WatchFileProvider over the given candidate file paths.
func NewWatchFileProvider(paths []string, logger *log.Logger) *WatchFileProvider {
	return &WatchFileProvider{inner: NewFileProvider(paths, 0), paths: paths, logger: logger}
}

// Run loads once, then watches every configured path and reloads on each write event, until ctx is
// cancelled or the watcher itself fails to start.
func (w *WatchFileProvider) Run(ctx context.Context, q *queue.Queue) error {
	if _, err := w.inner.LoadOnce(q); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, path := range w.paths {
		if err := watcher.Add(path); err != nil {
			w.logger.Warnf("provider: cannot watch %s: %v", path, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if n, err := w.inner.LoadOnce(q); err != nil {
				w.logger.Warnf("provider: reload %s: %v", event.Name, err)
			} else if n > 0 {
				w.logger.Infof("provider: reload %s admitted %d new candidates", event.Name, n)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("provider: watcher error: %v", err)
		}
	}
}
