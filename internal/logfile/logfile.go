// Package logfile provides append-only log files capped in size. When a write
// would grow the file past its cap, the file is renamed to <path>.old,
// replacing the previous backup, and writing continues in a fresh file.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxSize is the cap used for every sitstand log.
const DefaultMaxSize = 10 * 1024 * 1024

// BackupPath returns the rotation target for path.
func BackupPath(path string) string {
	return path + ".old"
}

// File is a size-capped log file. It is safe for concurrent use.
type File struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
	size    int64
	sync    bool
	closed  bool
}

// Open opens path for appending, creating its directory if needed. A file
// already at or over maxSize is rotated first.
func Open(path string, maxSize int64) (*File, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("logfile: invalid max size %d", maxSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l := &File{path: path, maxSize: maxSize}
	if info, err := os.Stat(path); err == nil && info.Size() >= maxSize {
		if err := rename(path); err != nil {
			return nil, err
		}
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetSync makes every Write fsync the file. Used for the diagnostic log,
// which must survive a crash.
func (l *File) SetSync(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sync = on
}

// Path returns the active file path.
func (l *File) Path() string {
	return l.path
}

// Write appends p, rotating first when p would not fit. A single write
// larger than the cap still lands whole in a fresh file. When rotation fails
// p is still appended to the active file and the rotation error is returned;
// the next oversized write retries the rotation.
func (l *File) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, os.ErrClosed
	}
	var rotErr error
	if l.f != nil && l.size > 0 && l.size+int64(len(p)) > l.maxSize {
		rotErr = l.rotateLocked()
	}
	if l.f == nil {
		if err := l.open(); err != nil {
			if rotErr != nil {
				return 0, rotErr
			}
			return 0, err
		}
	}

	n, err := l.f.Write(p)
	l.size += int64(n)
	if err != nil {
		return n, err
	}
	if l.sync {
		_ = l.f.Sync()
	}
	return n, rotErr
}

// Close closes the file. Further writes fail with os.ErrClosed.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.f == nil {
		return nil
	}
	_ = l.f.Sync()
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *File) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.size = info.Size()
	return nil
}

// rotateLocked moves the active file aside and reopens path. The file is
// reopened even when the close or rename fails, so l.f is only left nil when
// path itself cannot be opened.
func (l *File) rotateLocked() error {
	closeErr := l.f.Close()
	l.f = nil
	renameErr := rename(l.path)
	if err := l.open(); err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	return renameErr
}

func rename(path string) error {
	backup := BackupPath(path)
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old log: %w", err)
	}
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}
	return nil
}
