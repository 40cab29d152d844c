package macui

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// notifyTimeout bounds a single osascript notification call.
const notifyTimeout = 5 * time.Second

// Notifier delivers macOS notifications through osascript.
type Notifier struct {
	// Sound is the notification sound name; empty means silent.
	Sound string
	run   func(ctx context.Context, script string) ([]byte, error)
}

// NewNotifier returns a notifier that plays the default sound.
func NewNotifier() *Notifier {
	return &Notifier{Sound: "default", run: runOSAScript}
}

func runOSAScript(ctx context.Context, script string) ([]byte, error) {
	return exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
}

// Notify sends a native macOS notification.
func (n *Notifier) Notify(title, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	output, err := n.run(ctx, NotificationScript(title, message, n.Sound))
	if err != nil {
		return fmt.Errorf("osascript notification failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// NotificationScript builds the AppleScript for a notification.
func NotificationScript(title, message, sound string) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`,
		escapeAppleScript(message),
		escapeAppleScript(title))
	if sound != "" {
		script += fmt.Sprintf(` sound name "%s"`, escapeAppleScript(sound))
	}
	return script
}

// escapeAppleScript escapes special characters in AppleScript strings
func escapeAppleScript(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
