package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// Command represents user commands from a control client to the daemon
type Command string

const (
	CmdStart  Command = "start"  // Start the countdown (resumes a paused timer)
	CmdStop   Command = "stop"   // Stop the countdown
	CmdToggle Command = "toggle" // Start if stopped, stop if running
	CmdPause  Command = "pause"  // Toggle manual pause
	CmdSwitch Command = "switch" // Switch position now
	CmdQuit   Command = "quit"   // Shutdown daemon
)

// Commands lists every known command.
var Commands = []Command{CmdStart, CmdStop, CmdToggle, CmdPause, CmdSwitch, CmdQuit}

// ParseCommand returns the known command named s, or "" when s is empty or
// unknown.
func ParseCommand(s string) Command {
	cmd := Command(strings.TrimSpace(s))
	for _, known := range Commands {
		if cmd == known {
			return cmd
		}
	}
	return ""
}

// CacheDir returns ~/.cache/sitstand
func CacheDir() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "sitstand")
}

// CommandPath returns the command file path.
func CommandPath() string {
	return filepath.Join(CacheDir(), "cmd.txt")
}

// WriteCommand writes a command to ~/.cache/sitstand/cmd.txt
func WriteCommand(cmd Command) error {
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return os.WriteFile(CommandPath(), []byte(string(cmd)), 0644)
}

// ReadCommand reads and clears ~/.cache/sitstand/cmd.txt
// Returns empty string if no command or file doesn't exist
func ReadCommand() (Command, error) {
	cmdPath := CommandPath()

	data, err := os.ReadFile(cmdPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // No command pending
		}
		return "", err
	}

	// Clear the file immediately to prevent re-execution
	if err := os.WriteFile(cmdPath, []byte(""), 0644); err != nil {
		return "", err
	}

	// Unknown commands are ignored
	return ParseCommand(string(data)), nil
}
