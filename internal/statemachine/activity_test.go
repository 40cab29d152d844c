package statemachine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiroq/sitstand/internal/detector"
	"github.com/tiroq/sitstand/internal/statemachine"
	"github.com/tiroq/sitstand/testutil"
)

func TestClassify_priority(t *testing.T) {
	threshold := 60 * time.Second
	tests := []struct {
		name    string
		meeting bool
		video   bool
		idle    float64
		want    statemachine.ActivityType
	}{
		{"fresh input", false, false, 0, statemachine.ActivityActive},
		{"just below threshold", false, false, 59.9, statemachine.ActivityActive},
		{"at threshold", false, false, 60, statemachine.ActivityIdle},
		{"long idle", false, false, 3600, statemachine.ActivityIdle},
		{"meeting beats idle", true, false, 3600, statemachine.ActivityInMeeting},
		{"video beats idle", false, true, 3600, statemachine.ActivityWatchingVideo},
		{"meeting beats video", true, true, 0, statemachine.ActivityInMeeting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statemachine.Classify(tt.meeting, tt.video, tt.idle, threshold))
		})
	}
}

func TestActivityMachine_emitsOnlyOnChange(t *testing.T) {
	m := statemachine.NewActivityMachine(60 * time.Second)
	rec := &testutil.EventRecorder{}
	m.Subscribe(rec)

	assert.Equal(t, statemachine.ActivityActive, m.Current())

	m.Evaluate(false, false, 0) // initial Active, no event
	m.Evaluate(false, false, 61)
	m.Evaluate(false, false, 62)
	m.Evaluate(true, false, 0)
	m.Evaluate(true, false, 0)
	m.Evaluate(false, true, 0)
	m.Evaluate(false, false, 1)

	assert.Equal(t, []string{
		"activity=idle",
		"activity=in_meeting",
		"activity=watching_video",
		"activity=active",
	}, rec.Events())
}

func TestActivityMachine_noDebounce(t *testing.T) {
	m := statemachine.NewActivityMachine(5 * time.Second)
	rec := &testutil.EventRecorder{}
	m.Subscribe(rec)

	m.Evaluate(false, false, 5)
	m.Evaluate(false, false, 0)
	m.Evaluate(false, false, 5)

	assert.Equal(t, []string{"activity=idle", "activity=active", "activity=idle"}, rec.Events())
}

func TestActivityMachine_setThreshold(t *testing.T) {
	m := statemachine.NewActivityMachine(60 * time.Second)
	assert.Equal(t, statemachine.ActivityActive, m.Evaluate(false, false, 30))
	m.SetThreshold(30 * time.Second)
	assert.Equal(t, statemachine.ActivityIdle, m.Evaluate(false, false, 30))
}

func TestActivityMachine_process(t *testing.T) {
	m := statemachine.NewActivityMachine(60 * time.Second)
	got := m.Process(&detector.DetectionState{Video: true})
	assert.Equal(t, statemachine.ActivityWatchingVideo, got)
}
