package detector

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ScriptRunner executes an AppleScript snippet and returns its trimmed output.
type ScriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}

// OSAScriptRunner runs scripts through osascript. Each call is bounded by
// ctx; the child process is killed and reaped when it is done.
type OSAScriptRunner struct{}

// Run executes script with `osascript -e`.
func (OSAScriptRunner) Run(ctx context.Context, script string) (string, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("osascript: %w", ctx.Err())
		}
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// tabScripts maps browser bundle identifiers to the script that prints the
// active tab URL of the front window.
var tabScripts = map[string]string{
	"com.google.Chrome":     activeTabScript("Google Chrome"),
	"com.microsoft.edgemac": activeTabScript("Microsoft Edge"),
	"com.brave.Browser":     activeTabScript("Brave Browser"),
	"com.vivaldi.Vivaldi":   activeTabScript("Vivaldi"),
	"org.mozilla.firefox":   activeTabScript("Firefox"),
	"com.apple.Safari": `tell application "Safari"
    get URL of current tab of first window
end tell`,
}

func activeTabScript(app string) string {
	return `tell application "` + app + `"
    get URL of active tab of first window
end tell`
}

// TabScript returns the tab-address script for a browser, if one exists.
func TabScript(appID string) (string, bool) {
	s, ok := tabScripts[appID]
	return s, ok
}
