package diaglog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tiroq/sitstand/internal/logfile"
)

// Version is injected at link time from the main package; defaults to "dev".
var Version = "dev"

// DiagBundle is the first line of an export file.
type DiagBundle struct {
	ExportedAt      string   `json:"exported_at"`
	SitstandVersion string   `json:"sitstand_version"`
	GoVersion       string   `json:"go_version"`
	OS              string   `json:"os"`
	Arch            string   `json:"arch"`
	Sources         []string `json:"sources"`
	EntryCount      int      `json:"entry_count"`
	SkippedLines    int      `json:"skipped_lines,omitempty"`
}

// Export bundles the diagnostic log at logPath into
// dest/sitstand-diag-<ts>.ndjson. The rotated backup, when present, is
// included ahead of the active file so entries stay in write order. Lines
// that are not valid JSON (a write torn by a crash) are dropped and counted.
// It returns the written path and the number of entries included.
func Export(logPath, dest string) (string, int, error) {
	if _, err := os.Stat(logPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, fmt.Errorf("log file not found at %s: %w", logPath, os.ErrNotExist)
		}
		return "", 0, fmt.Errorf("log file unreadable: %w", err)
	}

	bundle := DiagBundle{
		ExportedAt:      time.Now().UTC().Format(time.RFC3339),
		SitstandVersion: Version,
		GoVersion:       runtime.Version(),
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
	}

	var body bytes.Buffer
	for _, src := range []string{logfile.BackupPath(logPath), logPath} {
		f, err := os.Open(src)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("log file unreadable: %w", err)
		}
		kept, skipped, err := copyEntries(&body, f)
		_ = f.Close()
		if err != nil {
			return "", 0, fmt.Errorf("log file unreadable: %w", err)
		}
		bundle.Sources = append(bundle.Sources, src)
		bundle.EntryCount += kept
		bundle.SkippedLines += skipped
	}

	header, err := json.Marshal(bundle)
	if err != nil {
		return "", 0, err
	}

	name := "sitstand-diag-" + time.Now().UTC().Format("20060102T150405") + ".ndjson"
	outPath := filepath.Join(dest, name)
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("output file could not be created: %w", err)
	}

	w := bufio.NewWriter(out)
	_, _ = w.Write(header)
	_ = w.WriteByte('\n')
	_, _ = body.WriteTo(w)
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return "", 0, err
	}
	if err := out.Close(); err != nil {
		return "", 0, err
	}
	return outPath, bundle.EntryCount, nil
}

// copyEntries copies every valid JSON line from r to w.
func copyEntries(w io.Writer, r io.Reader) (kept, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), logfile.DefaultMaxSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			skipped++
			continue
		}
		if _, err := w.Write(line); err != nil {
			return kept, skipped, err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return kept, skipped, err
		}
		kept++
	}
	return kept, skipped, scanner.Err()
}
