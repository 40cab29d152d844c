package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadSettle is how long Watch waits after a write before re-reading, so
// editors that write in several steps are seen once.
const reloadSettle = 100 * time.Millisecond

// Watch observes the directory holding path and delivers every valid
// reloaded configuration on the returned channel. Invalid files are logged
// to errLog and skipped; the previous configuration stays in effect. The
// channel is closed when ctx is done.
func Watch(ctx context.Context, path string, errLog *log.Logger) (<-chan *Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan *Config, 1)
	go func() {
		defer close(out)
		defer func() { _ = watcher.Close() }()

		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					settle = time.After(reloadSettle)
				}

			case <-settle:
				settle = nil
				cfg, err := Load(path)
				if err != nil {
					if errLog != nil {
						errLog.Printf("Config reload rejected: %v", err)
					}
					continue
				}
				// Latest config wins if the consumer has not caught up.
				select {
				case <-out:
				default:
				}
				out <- cfg

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if errLog != nil {
					errLog.Printf("Config watcher error: %v", err)
				}
			}
		}
	}()
	return out, nil
}
