package macui

import (
	"fmt"
	"strings"
	"time"

	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/statemachine"
)

// Status bar icons
const (
	IconStanding = "🧍"
	IconSitting  = "💺"
)

// FormatDuration renders seconds as mm:ss. Negative values render as 00:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// PositionIcon returns the status bar icon for a position.
func PositionIcon(standing bool) string {
	if standing {
		return IconStanding
	}
	return IconSitting
}

// PositionLabel returns "Standing" or "Sitting".
func PositionLabel(standing bool) string {
	if standing {
		return "Standing"
	}
	return "Sitting"
}

// StatusTitle is the status bar title, e.g. "🧍 29:59".
func StatusTitle(standing bool, seconds int) string {
	return PositionIcon(standing) + " " + FormatDuration(seconds)
}

// ActivityLabel returns the human label for an activity.
func ActivityLabel(a statemachine.ActivityType) string {
	switch a {
	case statemachine.ActivityActive:
		return "Active"
	case statemachine.ActivityIdle:
		return "System Idle"
	case statemachine.ActivityInMeeting:
		return "In Meeting"
	case statemachine.ActivityWatchingVideo:
		return "Watching Video"
	default:
		return "Unknown"
	}
}

// StartStopLabel is the start/stop button caption.
func StartStopLabel(active bool) string {
	if active {
		return "Stop"
	}
	return "Start"
}

// PauseLabel is the pause button caption.
func PauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

// TimerStatus summarises the run state: "Stopped", "Running", "Paused" or
// "Paused (idle)".
func TimerStatus(active, paused, autoPaused bool) string {
	switch {
	case autoPaused:
		return "Paused (idle)"
	case paused:
		return "Paused"
	case active:
		return "Running"
	default:
		return "Stopped"
	}
}

// DescribeStatus renders a status snapshot as human-readable lines.
func DescribeStatus(s *ipc.StatusSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", s.Title, PositionLabel(s.Standing))
	fmt.Fprintf(&b, "Timer:     %s\n", TimerStatus(s.Active, s.Paused, s.AutoPaused))
	fmt.Fprintf(&b, "Remaining: %s\n", FormatDuration(s.TimeRemaining))
	fmt.Fprintf(&b, "Activity:  %s\n", ActivityLabel(statemachine.ActivityType(s.Activity)))
	if s.ForegroundApp != "" {
		app := s.ForegroundApp
		if s.TabHost != "" {
			app += " (" + s.TabHost + ")"
		}
		fmt.Fprintf(&b, "Frontmost: %s\n", app)
	}
	if !s.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Updated:   %s\n", s.Timestamp.Local().Format(time.RFC3339))
	}
	return b.String()
}
