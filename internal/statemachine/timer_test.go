package statemachine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiroq/sitstand/internal/statemachine"
	"github.com/tiroq/sitstand/testutil"
)

func newTimer(t *testing.T) (*statemachine.Timer, *testutil.EventRecorder, *testutil.FakeNotifier) {
	t.Helper()
	n := &testutil.FakeNotifier{}
	tm := statemachine.NewTimer(statemachine.DefaultPeriodSeconds, n)
	rec := &testutil.EventRecorder{}
	tm.Subscribe(rec)
	return tm, rec, n
}

func TestNewTimer_initialState(t *testing.T) {
	tm, _, _ := newTimer(t)
	assert.Equal(t, statemachine.TimerState{TimeRemaining: 1800}, tm.Snapshot())
}

func TestToggleStart(t *testing.T) {
	tm, rec, _ := newTimer(t)

	tm.ToggleStart()
	s := tm.Snapshot()
	assert.True(t, s.Active)
	assert.False(t, s.Paused)

	tm.TogglePause()
	tm.ToggleStart()
	s = tm.Snapshot()
	assert.False(t, s.Active)
	assert.False(t, s.Paused)
	assert.False(t, s.AutoPaused)
	assert.Equal(t, []string{"paused=true", "paused=false"}, rec.Events())
}

func TestToggleStart_stopClearsAutoPause(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.Start()
	tm.ActivityChanged(statemachine.ActivityIdle)
	require.True(t, tm.Snapshot().AutoPaused)

	tm.ToggleStart()
	assert.Equal(t, statemachine.TimerState{TimeRemaining: 1800}, tm.Snapshot())
}

func TestStop_keepsRemaining(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.Start()
	for i := 0; i < 10; i++ {
		tm.Tick()
	}
	tm.Stop()
	assert.Equal(t, 1790, tm.Snapshot().TimeRemaining)
	tm.Tick()
	assert.Equal(t, 1790, tm.Snapshot().TimeRemaining)
}

func TestTick(t *testing.T) {
	tm, rec, _ := newTimer(t)

	tm.Tick() // stopped: no-op
	assert.Equal(t, 1800, tm.Snapshot().TimeRemaining)

	tm.Start()
	tm.Tick()
	tm.Tick()
	assert.Equal(t, 1798, tm.Snapshot().TimeRemaining)

	tm.TogglePause()
	tm.Tick()
	assert.Equal(t, 1798, tm.Snapshot().TimeRemaining)

	assert.Equal(t, []string{"remaining=1799", "remaining=1798", "paused=true"}, rec.Events())
}

func TestTick_lastSecondSwitches(t *testing.T) {
	n := &testutil.FakeNotifier{}
	tm := statemachine.NewTimer(2, n)
	rec := &testutil.EventRecorder{}
	tm.Subscribe(rec)
	tm.Start()

	tm.Tick() // 1
	assert.Empty(t, n.Sent())
	tm.Tick() // switch

	s := tm.Snapshot()
	assert.True(t, s.Standing)
	assert.Equal(t, 2, s.TimeRemaining)
	assert.Equal(t, []testutil.Notification{{Title: "Time to Stand!", Message: "Switch your desk position"}}, n.Sent())
	assert.Equal(t, []string{"remaining=1", "standing=true", "remaining=2"}, rec.Events())

	tm.Tick()
	assert.Equal(t, 1, tm.Snapshot().TimeRemaining)
}

func TestTick_fullPeriod(t *testing.T) {
	tm, _, n := newTimer(t)
	tm.Start()
	for i := 0; i < statemachine.DefaultPeriodSeconds-1; i++ {
		tm.Tick()
	}
	assert.Equal(t, 1, tm.Snapshot().TimeRemaining)
	assert.Empty(t, n.Sent())

	tm.Tick()
	s := tm.Snapshot()
	assert.True(t, s.Standing)
	assert.Equal(t, statemachine.DefaultPeriodSeconds, s.TimeRemaining)
	assert.Len(t, n.Sent(), 1)
}

func TestSwitchPosition_alternatesTitles(t *testing.T) {
	tm, _, n := newTimer(t)
	tm.SwitchPosition()
	tm.SwitchPosition()
	assert.Equal(t, []testutil.Notification{
		{Title: statemachine.TitleStand, Message: statemachine.SwitchMessage},
		{Title: statemachine.TitleSit, Message: statemachine.SwitchMessage},
	}, n.Sent())
	assert.False(t, tm.Snapshot().Standing)
}

func TestSwitchPosition_notifierFailureStillAdvances(t *testing.T) {
	n := &testutil.FakeNotifier{Err: errors.New("osascript missing")}
	tm := statemachine.NewTimer(60, n)
	errLog, captured := testutil.NewCapturedLogger("")
	tm.SetErrorLog(errLog)

	tm.SwitchPosition()

	assert.True(t, tm.Snapshot().Standing)
	assert.Equal(t, 60, tm.Snapshot().TimeRemaining)
	assert.True(t, captured.Contains("osascript missing"))
}

func TestSwitchPosition_resetsFullPeriodEvenWhenAlreadyFull(t *testing.T) {
	tm, rec, _ := newTimer(t)
	tm.SwitchPosition()
	// TimeRemaining was already 1800: no remaining event.
	assert.Equal(t, []string{"standing=true"}, rec.Events())
}

func TestSetPeriod_appliesFromNextSwitch(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.SetPeriod(600)
	assert.Equal(t, 1800, tm.Snapshot().TimeRemaining)
	tm.SwitchPosition()
	assert.Equal(t, 600, tm.Snapshot().TimeRemaining)
}

// Idle auto-pauses and activity resumes.
func TestAutoPauseResume(t *testing.T) {
	tm, rec, _ := newTimer(t)
	tm.Start()

	tm.ActivityChanged(statemachine.ActivityIdle)
	s := tm.Snapshot()
	assert.True(t, s.Paused)
	assert.True(t, s.AutoPaused)

	tm.ActivityChanged(statemachine.ActivityActive)
	s = tm.Snapshot()
	assert.False(t, s.Paused)
	assert.False(t, s.AutoPaused)
	assert.Equal(t, []string{"paused=true", "paused=false"}, rec.Events())
}

// A manual pause is never auto-resumed.
func TestManualPauseWins(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.Start()
	tm.TogglePause()

	tm.ActivityChanged(statemachine.ActivityIdle)
	tm.ActivityChanged(statemachine.ActivityActive)

	s := tm.Snapshot()
	assert.True(t, s.Paused)
	assert.False(t, s.AutoPaused)
}

// A manual toggle during an auto-pause turns it into a normal state.
func TestTogglePause_duringAutoPause(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.Start()
	tm.ActivityChanged(statemachine.ActivityIdle)

	tm.TogglePause() // resume by hand
	s := tm.Snapshot()
	assert.False(t, s.Paused)
	assert.False(t, s.AutoPaused)

	tm.ActivityChanged(statemachine.ActivityIdle)
	tm.TogglePause() // resume by hand
	tm.TogglePause() // manual pause
	tm.ActivityChanged(statemachine.ActivityActive)
	s = tm.Snapshot()
	assert.True(t, s.Paused)
	assert.False(t, s.AutoPaused)
}

// Meeting and video neither pause nor resume.
func TestMeetingAndVideoDoNotChangePause(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.Start()

	tm.ActivityChanged(statemachine.ActivityInMeeting)
	tm.ActivityChanged(statemachine.ActivityWatchingVideo)
	assert.False(t, tm.Snapshot().Paused)

	tm.ActivityChanged(statemachine.ActivityIdle)
	tm.ActivityChanged(statemachine.ActivityInMeeting)
	s := tm.Snapshot()
	assert.True(t, s.Paused)
	assert.True(t, s.AutoPaused)

	tm.ActivityChanged(statemachine.ActivityActive)
	assert.False(t, tm.Snapshot().Paused)
}

func TestIdleWhileStoppedDoesNothing(t *testing.T) {
	tm, rec, _ := newTimer(t)
	tm.ActivityChanged(statemachine.ActivityIdle)
	tm.ActivityChanged(statemachine.ActivityActive)
	assert.Equal(t, statemachine.TimerState{TimeRemaining: 1800}, tm.Snapshot())
	assert.Empty(t, rec.Events())
}

func TestTogglePause_whileStopped(t *testing.T) {
	tm, _, _ := newTimer(t)
	tm.TogglePause()
	s := tm.Snapshot()
	assert.True(t, s.Paused)
	assert.False(t, s.Active)
	tm.Tick()
	assert.Equal(t, 1800, tm.Snapshot().TimeRemaining)

	tm.Start()
	s = tm.Snapshot()
	assert.True(t, s.Active)
	assert.False(t, s.Paused)
}

func TestAutoPausedImpliesPaused(t *testing.T) {
	tm, _, _ := newTimer(t)
	ops := []func(){
		tm.Start,
		func() { tm.ActivityChanged(statemachine.ActivityIdle) },
		tm.TogglePause,
		func() { tm.ActivityChanged(statemachine.ActivityActive) },
		tm.Tick,
		func() { tm.ActivityChanged(statemachine.ActivityIdle) },
		tm.ToggleStart,
		tm.TogglePause,
		tm.ToggleStart,
		func() { tm.ActivityChanged(statemachine.ActivityIdle) },
		tm.SwitchPosition,
		func() { tm.ActivityChanged(statemachine.ActivityActive) },
	}
	for i, op := range ops {
		op()
		s := tm.Snapshot()
		if s.AutoPaused {
			assert.True(t, s.Paused, "step %d", i)
		}
		assert.GreaterOrEqual(t, s.TimeRemaining, 0, "step %d", i)
	}
}
