package statemachine

import (
	"time"

	"github.com/tiroq/sitstand/internal/detector"
	"github.com/tiroq/sitstand/internal/diaglog"
)

// ActivityType is the user's current activity context
type ActivityType string

const (
	ActivityActive        ActivityType = "active"
	ActivityIdle          ActivityType = "idle"
	ActivityInMeeting     ActivityType = "in_meeting"
	ActivityWatchingVideo ActivityType = "watching_video"
)

// ActivityObserver receives activity changes on the owning goroutine.
type ActivityObserver interface {
	ActivityChanged(a ActivityType)
}

// Classify applies the priority rule: meeting, then video, then idle, else
// active. The idle sample is only consulted when neither verdict holds.
func Classify(meeting, video bool, idleSeconds float64, threshold time.Duration) ActivityType {
	switch {
	case meeting:
		return ActivityInMeeting
	case video:
		return ActivityWatchingVideo
	case idleSeconds >= threshold.Seconds():
		return ActivityIdle
	default:
		return ActivityActive
	}
}

// ActivityMachine tracks the current ActivityType and notifies observers
// only when it changes. There is no debouncing.
type ActivityMachine struct {
	current   ActivityType
	threshold time.Duration
	observers []ActivityObserver
	logger    *diaglog.Logger
}

// NewActivityMachine starts in ActivityActive.
func NewActivityMachine(threshold time.Duration) *ActivityMachine {
	return &ActivityMachine{
		current:   ActivityActive,
		threshold: threshold,
	}
}

// SetLogger attaches a diagnostic logger. Nil disables logging.
func (m *ActivityMachine) SetLogger(l *diaglog.Logger) {
	m.logger = l
}

// SetThreshold changes the idle threshold for subsequent evaluations.
func (m *ActivityMachine) SetThreshold(threshold time.Duration) {
	m.threshold = threshold
}

// Subscribe registers an observer.
func (m *ActivityMachine) Subscribe(o ActivityObserver) {
	m.observers = append(m.observers, o)
}

// Current returns the last evaluated activity.
func (m *ActivityMachine) Current() ActivityType {
	return m.current
}

// Evaluate classifies one tick and emits ActivityChanged if the result differs
// from the previous tick.
func (m *ActivityMachine) Evaluate(meeting, video bool, idleSeconds float64) ActivityType {
	next := Classify(meeting, video, idleSeconds, m.threshold)
	if next == m.current {
		return next
	}
	prev := m.current
	m.current = next

	m.logger.Log(diaglog.LogEntry{
		Component: diaglog.ComponentActivity,
		Event:     diaglog.EventActivityChanged,
		Payload: map[string]interface{}{
			"from":         string(prev),
			"to":           string(next),
			"idle_seconds": idleSeconds,
		},
	})
	for _, o := range m.observers {
		o.ActivityChanged(next)
	}
	return next
}

// Process evaluates a detector result.
func (m *ActivityMachine) Process(state *detector.DetectionState) ActivityType {
	return m.Evaluate(state.Meeting, state.Video, state.IdleSeconds)
}
