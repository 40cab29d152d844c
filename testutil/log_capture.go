package testutil

import (
	"bytes"
	"log"
	"strings"
	"sync"
)

// LogCapture is a goroutine-safe sink for a *log.Logger under test.
type LogCapture struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// NewCapturedLogger returns a logger with prefix whose output is captured.
func NewCapturedLogger(prefix string) (*log.Logger, *LogCapture) {
	lc := &LogCapture{}
	return log.New(lc, prefix, 0), lc
}

// Write implements io.Writer.
func (lc *LogCapture) Write(p []byte) (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buf.Write(p)
}

// String returns all captured log output
func (lc *LogCapture) String() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buf.String()
}

// Contains checks if the log output contains the given substring
func (lc *LogCapture) Contains(substr string) bool {
	return strings.Contains(lc.String(), substr)
}

// Count returns the number of times a substring appears in the log
func (lc *LogCapture) Count(substr string) int {
	return strings.Count(lc.String(), substr)
}

// Lines returns all captured log lines
func (lc *LogCapture) Lines() []string {
	content := strings.TrimSpace(lc.String())
	if content == "" {
		return []string{}
	}
	return strings.Split(content, "\n")
}
