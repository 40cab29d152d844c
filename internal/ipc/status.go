package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// StatusSnapshot represents the complete daemon state at a point in time
type StatusSnapshot struct {
	Activity      string    `json:"activity"`               // active, idle, in_meeting, watching_video
	Standing      bool      `json:"standing"`               // Current desk position
	TimeRemaining int       `json:"time_remaining_seconds"` // Seconds until next switch
	Active        bool      `json:"active"`                 // Countdown started
	Paused        bool      `json:"paused"`                 // Manually or automatically paused
	AutoPaused    bool      `json:"auto_paused"`            // Paused because the user went idle
	ForegroundApp string    `json:"foreground_app"`         // Frontmost bundle identifier
	TabHost       string    `json:"tab_host,omitempty"`     // Host of the active tab, never the full address
	Title         string    `json:"title"`                  // Status bar title, e.g. "🧍 29:59"
	PID           int       `json:"pid"`                    // Daemon process
	Timestamp     time.Time `json:"timestamp"`              // Snapshot time
}

// StatusPath returns the status file path.
func StatusPath() string {
	return filepath.Join(CacheDir(), "status.json")
}

// WriteStatus persists StatusSnapshot to ~/.cache/sitstand/status.json using atomic write
func WriteStatus(status *StatusSnapshot) error {
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return atomicWriteJSON(StatusPath(), status)
}

// ReadStatus loads StatusSnapshot from ~/.cache/sitstand/status.json
func ReadStatus() (*StatusSnapshot, error) {
	data, err := os.ReadFile(StatusPath())
	if err != nil {
		return nil, err
	}

	var status StatusSnapshot
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// RemoveStatus deletes the status file so clients do not read a stale
// snapshot after shutdown.
func RemoveStatus() error {
	err := os.Remove(StatusPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// atomicWriteJSON writes data to a file atomically using temp file + rename
func atomicWriteJSON(path string, data interface{}) error {
	// Create temp file in same directory
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "status-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Ensure cleanup on error
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return err
	}

	// Sync to disk before rename
	if err := tmpFile.Sync(); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}
	tmpFile = nil // Prevent defer cleanup

	return os.Rename(tmpPath, path)
}
