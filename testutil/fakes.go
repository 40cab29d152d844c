package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tiroq/sitstand/internal/detector"
	"github.com/tiroq/sitstand/internal/statemachine"
)

// FakeApps is a settable detector.AppSource.
type FakeApps struct {
	mu sync.Mutex
	id string
}

// Set changes the frontmost application identifier.
func (f *FakeApps) Set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
}

// FrontmostApp implements detector.AppSource.
func (f *FakeApps) FrontmostApp() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// FakeIdle is a settable detector.IdleSource.
type FakeIdle struct {
	mu    sync.Mutex
	idle  time.Duration
	err   error
	calls int
}

// Set changes the reported idle duration and clears any error.
func (f *FakeIdle) Set(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle, f.err = d, nil
}

// Fail makes every query return err.
func (f *FakeIdle) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the number of queries made.
func (f *FakeIdle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// IdleDuration implements detector.IdleSource.
func (f *FakeIdle) IdleDuration(context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.idle, f.err
}

// FakeScripts maps scripts to canned output.
type FakeScripts struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	delay   time.Duration
}

// NewFakeScripts returns an empty runner; unknown scripts yield "".
func NewFakeScripts() *FakeScripts {
	return &FakeScripts{outputs: map[string]string{}, errs: map[string]error{}}
}

// SetTab makes the tab script for appID print addr.
func (f *FakeScripts) SetTab(appID, addr string) {
	script, ok := detector.TabScript(appID)
	if !ok {
		panic(fmt.Sprintf("no tab script for %s", appID))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[script] = addr
	delete(f.errs, script)
}

// FailTab makes the tab script for appID fail.
func (f *FakeScripts) FailTab(appID string, err error) {
	script, _ := detector.TabScript(appID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[script] = err
}

// SetDelay makes every Run take d, or until its context is done.
func (f *FakeScripts) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Run implements detector.ScriptRunner.
func (f *FakeScripts) Run(ctx context.Context, script string) (string, error) {
	f.mu.Lock()
	delay := f.delay
	out, err := f.outputs[script], f.errs[script]
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

// FakeVolume is a settable detector.VolumeProbe.
type FakeVolume struct {
	mu       sync.Mutex
	settings detector.VolumeSettings
	err      error
}

// Set changes the reported settings and clears any error.
func (f *FakeVolume) Set(vs detector.VolumeSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings, f.err = vs, nil
}

// Fail makes every query return err.
func (f *FakeVolume) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Volume implements detector.VolumeProbe.
func (f *FakeVolume) Volume(context.Context) (detector.VolumeSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, f.err
}

// Notification is one delivered notification.
type Notification struct {
	Title   string
	Message string
}

// FakeNotifier records notifications. Err and Delay must be set before use.
type FakeNotifier struct {
	mu    sync.Mutex
	sent  []Notification
	Err   error
	Delay time.Duration // Time each Notify blocks before returning
}

// Notify implements statemachine.Notifier. The notification is recorded
// even when Err is set.
func (f *FakeNotifier) Notify(title, message string) error {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Notification{Title: title, Message: message})
	return f.Err
}

// Sent returns a copy of every recorded notification.
func (f *FakeNotifier) Sent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

// EventRecorder implements ActivityObserver and TimerObserver, recording each
// event as a short string such as "paused=true" or "activity=idle".
type EventRecorder struct {
	mu     sync.Mutex
	events []string
}

var (
	_ statemachine.ActivityObserver = (*EventRecorder)(nil)
	_ statemachine.TimerObserver    = (*EventRecorder)(nil)
)

func (r *EventRecorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// ActivityChanged implements statemachine.ActivityObserver.
func (r *EventRecorder) ActivityChanged(a statemachine.ActivityType) { r.add("activity=%s", a) }

// StandingChanged implements statemachine.TimerObserver.
func (r *EventRecorder) StandingChanged(standing bool) { r.add("standing=%t", standing) }

// TimeRemainingChanged implements statemachine.TimerObserver.
func (r *EventRecorder) TimeRemainingChanged(seconds int) { r.add("remaining=%d", seconds) }

// PausedChanged implements statemachine.TimerObserver.
func (r *EventRecorder) PausedChanged(paused bool) { r.add("paused=%t", paused) }

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset clears the recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
