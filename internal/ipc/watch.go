package ipc

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// writeSettle gives a writer time to finish before the command is read.
const writeSettle = 50 * time.Millisecond

// WatchCommands monitors cmd.txt and sends every command it reads on out.
// It prefers fsnotify and falls back to 1s polling when fsnotify is
// unavailable or fails. Returns when ctx is done.
func WatchCommands(ctx context.Context, out chan<- Command, outLog, errLog *log.Logger) {
	cmdPath := CommandPath()
	cmdDir := filepath.Dir(cmdPath)

	if err := os.MkdirAll(cmdDir, 0755); err != nil {
		logf(errLog, "Failed to create command directory: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logf(errLog, "fsnotify not available, falling back to polling: %v", err)
		watchCommandsWithPolling(ctx, cmdPath, out, outLog)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logf(errLog, "Failed to close watcher: %v", err)
		}
	}()

	if err := watcher.Add(cmdDir); err != nil {
		logf(errLog, "Failed to watch command directory, falling back to polling: %v", err)
		watchCommandsWithPolling(ctx, cmdPath, out, outLog)
		return
	}

	logf(outLog, "Command watcher started (using fsnotify)")

	// Polling backstop in case an fsnotify event is missed
	pollTicker := time.NewTicker(1 * time.Second)
	defer pollTicker.Stop()

	lastCheckTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				logf(outLog, "fsnotify watcher closed, switching to polling")
				watchCommandsWithPolling(ctx, cmdPath, out, outLog)
				return
			}
			if filepath.Clean(event.Name) == cmdPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				if !dispatch(ctx, out) {
					return
				}
				lastCheckTime = time.Now()
			}

		case <-pollTicker.C:
			if fileInfo, err := os.Stat(cmdPath); err == nil && fileInfo.ModTime().After(lastCheckTime) {
				if !dispatch(ctx, out) {
					return
				}
				lastCheckTime = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				logf(outLog, "fsnotify error channel closed, switching to polling")
				watchCommandsWithPolling(ctx, cmdPath, out, outLog)
				return
			}
			logf(errLog, "File watcher error: %v", err)
		}
	}
}

// watchCommandsWithPolling is a pure polling-based fallback for command monitoring
func watchCommandsWithPolling(ctx context.Context, cmdPath string, out chan<- Command, outLog *log.Logger) {
	logf(outLog, "Command watcher started (using polling fallback, 1s interval)")

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	lastCheckTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fileInfo, err := os.Stat(cmdPath)
			if err != nil {
				continue // File doesn't exist yet, keep polling
			}
			if fileInfo.ModTime().After(lastCheckTime) {
				if !dispatch(ctx, out) {
					return
				}
				lastCheckTime = time.Now()
			}
		}
	}
}

// dispatch reads the pending command and forwards it. Returns false if ctx
// ended while waiting to send.
func dispatch(ctx context.Context, out chan<- Command) bool {
	select {
	case <-time.After(writeSettle):
	case <-ctx.Done():
		return false
	}

	cmd, err := ReadCommand()
	if err != nil || cmd == "" {
		return true
	}
	select {
	case out <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// WatchStatus sends every new status snapshot written by the daemon until ctx
// is done. The directory is watched rather than the file because each write
// replaces the file.
func WatchStatus(ctx context.Context, out chan<- *StatusSnapshot, errLog *log.Logger) error {
	statusDir := CacheDir()
	statusPath := StatusPath()
	if err := os.MkdirAll(statusDir, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logf(errLog, "Failed to close watcher: %v", err)
		}
	}()
	if err := watcher.Add(statusDir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != statusPath || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			status, err := ReadStatus()
			if err != nil {
				// Removed on shutdown, or caught mid-write.
				continue
			}
			select {
			case out <- status:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf(errLog, "Watcher error: %v", err)
		}
	}
}

func logf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}
