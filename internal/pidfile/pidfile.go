package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning indicates a live process already owns the PID file.
var ErrAlreadyRunning = errors.New("another instance is already running")

// PIDFile manages a PID file for preventing duplicate instances
type PIDFile struct {
	path string
	pid  int
}

// New creates a new PID file at the specified path. It fails with an error
// wrapping ErrAlreadyRunning if the file names a running process; a stale
// file is replaced.
func New(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	if existingPID, err := ReadPID(path); err == nil {
		if isProcessRunning(existingPID) {
			return nil, fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, existingPID)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	currentPID := os.Getpid()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", currentPID)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &PIDFile{
		path: path,
		pid:  currentPID,
	}, nil
}

// Path returns the file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Remove deletes the PID file if it still contains our PID
func (p *PIDFile) Remove() error {
	if p == nil {
		return nil
	}
	if pid, err := ReadPID(p.path); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// ReadPID parses the PID stored at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, nil
}

// Running reports the PID recorded at path and whether that process is alive.
func Running(path string) (int, bool) {
	pid, err := ReadPID(path)
	if err != nil {
		return 0, false
	}
	return pid, isProcessRunning(pid)
}

// isProcessRunning checks if a process with the given PID is running
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix FindProcess always succeeds; signal 0 probes for existence.
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.EPERM) {
		// Process exists but we don't have permission to signal it
		return true
	}
	return false
}

// GetPIDFilePath returns the standard PID file path for a given application name
func GetPIDFilePath(appName string) string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "sitstand", appName+".pid")
}
