// Package diaglog provides structured NDJSON diagnostic logging for sitstand.
// Activated by SITSTAND_DEBUG=true. When the env var is absent, all Log calls
// are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/tiroq/sitstand/internal/logfile"
)

// DefaultPath is used when SITSTAND_LOG_PATH is unset.
const DefaultPath = "/tmp/sitstand-debug.log"

// ── Component labels ─────────────────────────────────────────────────────────

const (
	ComponentSampler    = "activity-sampler"
	ComponentForeground = "foreground-resolver"
	ComponentAudio      = "audio-tracker"
	ComponentActivity   = "activity-machine"
	ComponentTimer      = "timer"
	ComponentEngine     = "engine"
	ComponentFeed       = "event-feed"
	ComponentDiagExport = "diag-export"
)

// ── Event names ──────────────────────────────────────────────────────────────

const (
	EventSampleFailed    = "sample_failed"
	EventTabQueryFailed  = "tab_query_failed"
	EventVolumeFailed    = "volume_query_failed"
	EventActivityChanged = "activity_changed"
	EventTimerStart      = "timer_start"
	EventTimerStop       = "timer_stop"
	EventTimerPause      = "timer_pause"
	EventPositionSwitch  = "position_switch"
	EventNotifyFailed    = "notify_failed"
	EventCommand         = "command"
	EventConfigReload    = "config_reload"
	EventFeedClient      = "feed_client"
)

// ── LogEntry ─────────────────────────────────────────────────────────────────

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"`                // RFC3339Nano
	Component string      `json:"component"`         // see Component* constants
	Event     string      `json:"event"`             // see Event* constants
	Reason    string      `json:"reason,omitempty"`  // free-form cause
	Payload   interface{} `json:"payload,omitempty"` // redacted before write
}

// ── Logger ───────────────────────────────────────────────────────────────────

// Logger writes LogEntry values to a size-capped NDJSON file. When debug mode
// is disabled every Log call is a no-op.
type Logger struct {
	rw      *logfile.File
	mu      sync.Mutex
	enabled bool
}

// New opens (or creates) the NDJSON log file at path. If debug mode is
// disabled, path is ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return &Logger{enabled: false}, nil
	}
	rw, err := logfile.Open(path, logfile.DefaultMaxSize)
	if err != nil {
		return nil, err
	}
	rw.SetSync(true)
	return &Logger{rw: rw, enabled: true}, nil
}

// Log serialises entry to JSON, appends a newline, and writes it to the log
// file. Payloads are redacted before serialisation.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || !l.enabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Enabled reports whether entries are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.Close()
}

// IsDebugEnabled reports whether SITSTAND_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("SITSTAND_DEBUG") == "true"
}

// LogPath returns $SITSTAND_LOG_PATH or DefaultPath.
func LogPath() string {
	if p := os.Getenv("SITSTAND_LOG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (e.g., disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
