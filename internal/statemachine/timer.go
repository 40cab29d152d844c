package statemachine

import (
	"log"

	"github.com/tiroq/sitstand/internal/diaglog"
)

// DefaultPeriodSeconds is the sit/stand interval.
const DefaultPeriodSeconds = 30 * 60

// Notification texts
const (
	TitleStand    = "Time to Stand!"
	TitleSit      = "Time to Sit!"
	SwitchMessage = "Switch your desk position"
)

// TimerState is the observable timer state. AutoPaused implies Paused.
type TimerState struct {
	Standing      bool `json:"standing"`
	TimeRemaining int  `json:"time_remaining_seconds"`
	Active        bool `json:"active"`
	Paused        bool `json:"paused"`
	AutoPaused    bool `json:"auto_paused"`
}

// TimerObserver receives timer changes on the owning goroutine. Each method
// is called only when the value actually changed.
type TimerObserver interface {
	StandingChanged(standing bool)
	TimeRemainingChanged(seconds int)
	PausedChanged(paused bool)
}

// Notifier delivers a user-visible notification.
type Notifier interface {
	Notify(title, message string) error
}

// Timer is the posture countdown. All methods must be called from a single
// goroutine.
type Timer struct {
	state     TimerState
	period    int
	notifier  Notifier
	observers []TimerObserver
	errLog    *log.Logger
	logger    *diaglog.Logger
}

// NewTimer creates a stopped timer, sitting, with a full period remaining.
func NewTimer(periodSeconds int, notifier Notifier) *Timer {
	if periodSeconds <= 0 {
		periodSeconds = DefaultPeriodSeconds
	}
	return &Timer{
		state:    TimerState{TimeRemaining: periodSeconds},
		period:   periodSeconds,
		notifier: notifier,
	}
}

// SetLogger attaches a diagnostic logger. Nil disables logging.
func (t *Timer) SetLogger(l *diaglog.Logger) {
	t.logger = l
}

// SetErrorLog sets where notifier failures are reported.
func (t *Timer) SetErrorLog(l *log.Logger) {
	t.errLog = l
}

// SetPeriod changes the period used by the next position switch.
func (t *Timer) SetPeriod(periodSeconds int) {
	if periodSeconds > 0 {
		t.period = periodSeconds
	}
}

// Subscribe registers an observer.
func (t *Timer) Subscribe(o TimerObserver) {
	t.observers = append(t.observers, o)
}

// Snapshot returns a copy of the current state.
func (t *Timer) Snapshot() TimerState {
	return t.state
}

// ToggleStart starts a stopped timer or stops a running one. Stopping
// clears both pause flags; the remaining time is kept.
func (t *Timer) ToggleStart() {
	if t.state.Active {
		t.Stop()
	} else {
		t.Start()
	}
}

// Start makes the timer active and unpaused. No-op if already running unpaused.
func (t *Timer) Start() {
	if t.state.Active && !t.state.Paused {
		return
	}
	t.state.Active = true
	t.state.AutoPaused = false
	t.setPaused(false)
	t.log(diaglog.EventTimerStart, nil)
}

// Stop deactivates the timer and clears both pause flags.
func (t *Timer) Stop() {
	if !t.state.Active && !t.state.Paused {
		return
	}
	t.state.Active = false
	t.state.AutoPaused = false
	t.setPaused(false)
	t.log(diaglog.EventTimerStop, nil)
}

// TogglePause flips the manual pause flag. A manual toggle always clears
// AutoPaused, so a paused timer resumed by hand is no longer auto-resumable
// and a timer paused by hand is never auto-resumed. While stopped the flag
// flips without affecting the countdown.
func (t *Timer) TogglePause() {
	t.state.AutoPaused = false
	t.setPaused(!t.state.Paused)
	t.log(diaglog.EventTimerPause, map[string]interface{}{"paused": t.state.Paused, "origin": "manual"})
}

// ActivityChanged implements ActivityObserver. Idle auto-pauses a running
// timer; Active resumes only an auto-pause. InMeeting and WatchingVideo
// neither pause nor resume.
func (t *Timer) ActivityChanged(a ActivityType) {
	switch a {
	case ActivityIdle:
		if t.state.Active && !t.state.Paused {
			t.state.AutoPaused = true
			t.setPaused(true)
			t.log(diaglog.EventTimerPause, map[string]interface{}{"paused": true, "origin": "auto"})
		}
	case ActivityActive:
		if t.state.Paused && t.state.AutoPaused {
			t.state.AutoPaused = false
			t.setPaused(false)
			t.log(diaglog.EventTimerPause, map[string]interface{}{"paused": false, "origin": "auto"})
		}
	}
}

// Tick advances the countdown by one second. It is a no-op unless the timer
// is active and not paused. The tick that would reach zero switches the
// position instead, so TimeRemaining never drops below one while running.
func (t *Timer) Tick() {
	if !t.state.Active || t.state.Paused {
		return
	}
	if t.state.TimeRemaining > 1 {
		t.setRemaining(t.state.TimeRemaining - 1)
		return
	}
	t.SwitchPosition()
}

// SwitchPosition flips Standing, restarts the countdown and requests one
// notification. Notifier failures are logged; the state still advances.
func (t *Timer) SwitchPosition() {
	t.state.Standing = !t.state.Standing
	for _, o := range t.observers {
		o.StandingChanged(t.state.Standing)
	}
	t.setRemaining(t.period)

	title := TitleSit
	if t.state.Standing {
		title = TitleStand
	}
	t.log(diaglog.EventPositionSwitch, map[string]interface{}{"standing": t.state.Standing})

	if t.notifier == nil {
		return
	}
	if err := t.notifier.Notify(title, SwitchMessage); err != nil {
		if t.errLog != nil {
			t.errLog.Printf("Failed to send notification: %v", err)
		}
		t.log(diaglog.EventNotifyFailed, map[string]interface{}{"error": err.Error()})
	}
}

func (t *Timer) setPaused(paused bool) {
	if t.state.Paused == paused {
		return
	}
	t.state.Paused = paused
	for _, o := range t.observers {
		o.PausedChanged(paused)
	}
}

func (t *Timer) setRemaining(seconds int) {
	if t.state.TimeRemaining == seconds {
		return
	}
	t.state.TimeRemaining = seconds
	for _, o := range t.observers {
		o.TimeRemainingChanged(seconds)
	}
}

func (t *Timer) log(event string, payload map[string]interface{}) {
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentTimer,
		Event:     event,
	}
	if payload != nil {
		entry.Payload = payload
	}
	t.logger.Log(entry)
}
