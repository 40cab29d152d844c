package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestLogWritesNDJSON(t *testing.T) {
	t.Setenv("SITSTAND_DEBUG", "true")

	tmp := t.TempDir() + "/test.ndjson"
	l, err := New(tmp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	if !l.Enabled() {
		t.Fatal("logger should be enabled")
	}

	entries := []LogEntry{
		{Component: ComponentSampler, Event: EventSampleFailed, Reason: "ioreg timeout"},
		{Component: ComponentActivity, Event: EventActivityChanged, Payload: map[string]interface{}{"to": "idle"}},
		{Component: ComponentTimer, Event: EventPositionSwitch},
	}
	for _, e := range entries {
		l.Log(e)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line: %v -> %s", err, scanner.Text())
		}
		lines = append(lines, m)
	}
	if len(lines) != len(entries) {
		t.Fatalf("want %d lines, got %d", len(entries), len(lines))
	}
	if lines[0]["component"] != ComponentSampler {
		t.Errorf("component mismatch: %v", lines[0]["component"])
	}
	if lines[0]["reason"] != "ioreg timeout" {
		t.Errorf("reason mismatch: %v", lines[0]["reason"])
	}
	payload, ok := lines[1]["payload"].(map[string]interface{})
	if !ok || payload["to"] != "idle" {
		t.Errorf("payload mismatch: %v", lines[1]["payload"])
	}
	if lines[0]["ts"] == nil {
		t.Error("ts field missing")
	}
}

func TestLoggerAppendsAcrossReopen(t *testing.T) {
	t.Setenv("SITSTAND_DEBUG", "true")
	tmp := t.TempDir() + "/reopen.ndjson"

	for i := 0; i < 2; i++ {
		l, err := New(tmp)
		if err != nil {
			t.Fatalf("New #%d: %v", i, err)
		}
		l.Log(LogEntry{Component: ComponentEngine, Event: EventCommand, Reason: "start"})
		if err := l.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i, err)
		}
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("want 2 entries after reopen, got %d", n)
	}
}

func TestRedactTabAddresses(t *testing.T) {
	input := map[string]interface{}{
		"tab_address": "https://meet.google.com/abc-defg-hij?authuser=1",
		"app":         "com.google.Chrome",
		"nested": map[string]interface{}{
			"url": "HTTPS://WWW.YouTube.com/watch?v=secret",
			"ok":  "value",
		},
		"list": []interface{}{
			map[string]interface{}{"tab_address": "zoom.us/j/123456"},
		},
	}

	out := Redact(input).(map[string]interface{})
	if out["tab_address"] != "meet.google.com" {
		t.Errorf("tab_address: got %v", out["tab_address"])
	}
	if out["app"] != "com.google.Chrome" {
		t.Error("app should be preserved")
	}
	nested := out["nested"].(map[string]interface{})
	if nested["url"] != "www.youtube.com" {
		t.Errorf("nested url: got %v", nested["url"])
	}
	if nested["ok"] != "value" {
		t.Error("nested ok field should be preserved")
	}
	item := out["list"].([]interface{})[0].(map[string]interface{})
	if item["tab_address"] != "zoom.us" {
		t.Errorf("list tab_address: got %v", item["tab_address"])
	}
	if input["tab_address"] != "https://meet.google.com/abc-defg-hij?authuser=1" {
		t.Error("input must not be mutated")
	}
}

func TestHostOnly(t *testing.T) {
	tests := map[string]string{
		"":                            "",
		"https://example.com/a?b=c":   "example.com",
		"example.com/path":            "example.com",
		"http://127.0.0.1:8080/x":     "127.0.0.1",
		"file:///Users/me/movie.mp4":  "[REDACTED]",
		"  https://Twitch.TV/stream ": "twitch.tv",
	}
	for in, want := range tests {
		if got := HostOnly(in); got != want {
			t.Errorf("HostOnly(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoOpWhenDisabled(t *testing.T) {
	t.Setenv("SITSTAND_DEBUG", "")

	tmp := t.TempDir() + "/noop.ndjson"
	l, err := New(tmp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(LogEntry{Component: ComponentTimer, Event: EventTimerStart})
	_ = l.Close()

	if l.Enabled() {
		t.Error("logger should be disabled")
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("log file should not exist when debug disabled")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log(LogEntry{Component: ComponentTimer, Event: EventTimerStart})
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestLogPath(t *testing.T) {
	t.Setenv("SITSTAND_LOG_PATH", "")
	if got := LogPath(); got != DefaultPath {
		t.Errorf("LogPath() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("SITSTAND_LOG_PATH", "/var/tmp/x.log")
	if got := LogPath(); got != "/var/tmp/x.log" {
		t.Errorf("LogPath() = %q", got)
	}
}
