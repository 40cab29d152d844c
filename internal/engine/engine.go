// Package engine owns the daemon state. One goroutine applies detection
// results, countdown ticks, control commands and config reloads, so the timer,
// the activity machine and the audio table are never mutated concurrently.
// OS queries run on a separate detection goroutine and notifications are
// delivered on their own, so neither can hold up the countdown.
package engine

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tiroq/sitstand/internal/config"
	"github.com/tiroq/sitstand/internal/detector"
	"github.com/tiroq/sitstand/internal/diaglog"
	"github.com/tiroq/sitstand/internal/feed"
	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/statemachine"
	"github.com/tiroq/sitstand/pkg/macui"
)

// Sources are the OS collaborators the detector queries.
type Sources struct {
	Idle    detector.IdleSource
	Apps    detector.AppSource
	Scripts detector.ScriptRunner
	Volume  detector.VolumeProbe
}

// PlatformSources returns the real sources for this OS.
func PlatformSources() Sources {
	runner := detector.OSAScriptRunner{}
	return Sources{
		Idle:    detector.NewPlatformIdleSource(),
		Apps:    detector.NewWorkspaceApps(),
		Scripts: runner,
		Volume:  detector.ScriptVolumeProbe{Runner: runner},
	}
}

// Options are the optional collaborators of an Engine.
type Options struct {
	Notifier    statemachine.Notifier
	Hub         *feed.Hub                       // nil disables the event feed
	WriteStatus func(*ipc.StatusSnapshot) error // nil disables the status file
	OutLog      *log.Logger
	ErrLog      *log.Logger
	Diag        *diaglog.Logger
}

// Engine wires detector, activity machine and timer together.
type Engine struct {
	cfg      *config.Config
	opts     Options
	rules    *detector.RuleSet
	audio    *detector.AudioPlaybackTracker
	detector *detector.Detector // used by the detection goroutine while Run is active
	activity *statemachine.ActivityMachine
	timer    *statemachine.Timer
	notifier *asyncNotifier

	last           *detector.DetectionState
	dirty          bool
	sampleInterval time.Duration
	pid            int
}

// New builds an Engine from cfg. The timer starts stopped.
func New(cfg *config.Config, src Sources, opts Options) *Engine {
	e := &Engine{
		cfg:            cfg,
		opts:           opts,
		sampleInterval: cfg.SampleInterval,
		pid:            os.Getpid(),
		dirty:          true,
	}

	e.rules = detector.NewRuleSet(cfg)
	e.audio = detector.NewAudioPlaybackTracker(cfg.AudioTableLimit, e.onVolumeError)
	e.detector = detector.New(
		detector.NewActivitySampler(src.Idle, e.onSampleError),
		detector.NewForegroundResolver(src.Apps, src.Scripts, e.onTabError),
		src.Volume,
	)

	var notifier statemachine.Notifier
	if opts.Notifier != nil {
		e.notifier = newAsyncNotifier(opts.Notifier, opts.ErrLog, opts.Diag)
		notifier = e.notifier
	}
	e.activity = statemachine.NewActivityMachine(cfg.IdleThreshold)
	e.activity.SetLogger(opts.Diag)
	e.timer = statemachine.NewTimer(cfg.PositionSeconds(), notifier)
	e.timer.SetLogger(opts.Diag)
	e.timer.SetErrorLog(opts.ErrLog)

	// Order matters: the timer reacts before presentation observers see the
	// activity, so a snapshot taken from any observer is already consistent.
	e.activity.Subscribe(e.timer)
	e.activity.Subscribe(dirtyMarker{e})
	e.timer.Subscribe(dirtyMarker{e})
	if opts.Hub != nil {
		e.activity.Subscribe(opts.Hub)
		e.timer.Subscribe(opts.Hub)
	}
	return e
}

// Timer exposes the timer for observers and tests. Callers must stay on the
// engine goroutine.
func (e *Engine) Timer() *statemachine.Timer { return e.timer }

// Activity exposes the activity machine. Callers must stay on the engine
// goroutine.
func (e *Engine) Activity() *statemachine.ActivityMachine { return e.activity }

// Run drives the engine until ctx is done or a quit command arrives. Either
// channel may be nil. Detection runs on a second goroutine; at most one
// detection is in flight and sample ticks that arrive meanwhile are dropped.
// Queued notifications are delivered before Run returns.
func (e *Engine) Run(ctx context.Context, commands <-chan ipc.Command, reloads <-chan *config.Config) error {
	if e.notifier != nil {
		defer e.notifier.Close()
	}

	detectCtx, stopDetect := context.WithCancel(ctx)
	requests := make(chan detector.Request, 1)
	results := make(chan *detector.DetectionState, 1)
	detectDone := make(chan struct{})
	go func() {
		defer close(detectDone)
		e.detectLoop(detectCtx, requests, results)
	}()
	defer func() {
		stopDetect()
		<-detectDone
	}()

	sampleTicker := time.NewTicker(e.sampleInterval)
	defer sampleTicker.Stop()
	countdown := time.NewTicker(time.Second)
	defer countdown.Stop()

	pending := false
	sample := func() {
		if pending {
			return
		}
		pending = true
		requests <- e.request()
	}

	sample()
	e.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-sampleTicker.C:
			sample()

		case state := <-results:
			pending = false
			e.apply(state)

		case <-countdown.C:
			e.Tick()

		case cmd := <-commands:
			if quit := e.HandleCommand(cmd); quit {
				e.Flush()
				return nil
			}

		case cfg, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			prev := e.sampleInterval
			e.ApplyConfig(cfg)
			if e.sampleInterval != prev {
				sampleTicker.Reset(e.sampleInterval)
			}
		}
		e.Flush()
	}
}

// detectLoop answers detection requests until ctx is done.
func (e *Engine) detectLoop(ctx context.Context, requests <-chan detector.Request, results chan<- *detector.DetectionState) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			state := e.detector.Detect(ctx, req)
			select {
			case results <- state:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Sample runs one classification tick synchronously. It must not be called
// while Run is active.
func (e *Engine) Sample(ctx context.Context) statemachine.ActivityType {
	return e.apply(e.detector.Detect(ctx, e.request()))
}

// request snapshots what the detection goroutine may read.
func (e *Engine) request() detector.Request {
	return detector.Request{
		Rules:   e.rules,
		Audio:   e.audio.Silent(),
		Timeout: e.cfg.ScriptTimeout,
	}
}

// apply folds a detection result into the engine state.
func (e *Engine) apply(state *detector.DetectionState) statemachine.ActivityType {
	if fl := state.FocusLost; fl != nil {
		e.audio.Record(fl.ApplicationID, fl.Volume, fl.Err)
	}
	if e.last == nil || e.last.Context != state.Context {
		e.dirty = true
	}
	e.last = state
	return e.activity.Process(state)
}

// Tick advances the countdown by one second.
func (e *Engine) Tick() {
	e.timer.Tick()
}

// HandleCommand applies a control command and reports whether the daemon
// should quit.
func (e *Engine) HandleCommand(cmd ipc.Command) bool {
	logf(e.opts.OutLog, "[EVENT] Received command: %s", cmd)
	e.opts.Diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentEngine,
		Event:     diaglog.EventCommand,
		Payload:   map[string]interface{}{"command": string(cmd)},
	})
	// Start and Stop from an unpaused state change no observed field.
	e.dirty = true

	switch cmd {
	case ipc.CmdStart:
		e.timer.Start()
	case ipc.CmdStop:
		e.timer.Stop()
	case ipc.CmdToggle:
		e.timer.ToggleStart()
	case ipc.CmdPause:
		e.timer.TogglePause()
	case ipc.CmdSwitch:
		e.timer.SwitchPosition()
	case ipc.CmdQuit:
		logf(e.opts.OutLog, "[SHUTDOWN] Quit command received")
		return true
	default:
		logf(e.opts.ErrLog, "Unknown command: %s", cmd)
	}
	return false
}

// ApplyConfig switches to cfg. Rules and the query timeout apply from the
// next detection request. The new position period applies from the next
// switch; the current countdown is not touched.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.cfg = cfg
	e.sampleInterval = cfg.SampleInterval
	e.rules = detector.NewRuleSet(cfg)
	e.audio.SetLimit(cfg.AudioTableLimit)
	e.activity.SetThreshold(cfg.IdleThreshold)
	e.timer.SetPeriod(cfg.PositionSeconds())

	logf(e.opts.OutLog, "[EVENT] Config reloaded: idle_threshold=%s, sample_interval=%s, position_period=%s",
		cfg.IdleThreshold, cfg.SampleInterval, cfg.PositionPeriod)
	e.opts.Diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentEngine,
		Event:     diaglog.EventConfigReload,
		Payload: map[string]interface{}{
			"idle_threshold":  cfg.IdleThreshold.String(),
			"sample_interval": cfg.SampleInterval.String(),
			"position_period": cfg.PositionPeriod.String(),
		},
	})
}

// Snapshot builds the presentation status.
func (e *Engine) Snapshot() ipc.StatusSnapshot {
	ts := e.timer.Snapshot()
	s := ipc.StatusSnapshot{
		Activity:      string(e.activity.Current()),
		Standing:      ts.Standing,
		TimeRemaining: ts.TimeRemaining,
		Active:        ts.Active,
		Paused:        ts.Paused,
		AutoPaused:    ts.AutoPaused,
		Title:         macui.StatusTitle(ts.Standing, ts.TimeRemaining),
		PID:           e.pid,
		Timestamp:     time.Now(),
	}
	if e.last != nil {
		s.ForegroundApp = e.last.Context.ApplicationID
		if e.last.Context.HasTab {
			s.TabHost = diaglog.HostOnly(e.last.Context.TabAddress)
		}
	}
	return s
}

// Flush publishes the status when something changed since the last flush.
func (e *Engine) Flush() {
	if !e.dirty {
		return
	}
	e.dirty = false
	snap := e.Snapshot()
	if e.opts.Hub != nil {
		e.opts.Hub.UpdateSnapshot(snap)
	}
	if e.opts.WriteStatus != nil {
		if err := e.opts.WriteStatus(&snap); err != nil {
			logf(e.opts.ErrLog, "Failed to write status: %v", err)
		}
	}
}

func (e *Engine) onSampleError(err error) {
	e.opts.Diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentSampler,
		Event:     diaglog.EventSampleFailed,
		Reason:    err.Error(),
	})
}

func (e *Engine) onTabError(appID string, err error) {
	e.opts.Diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentForeground,
		Event:     diaglog.EventTabQueryFailed,
		Reason:    err.Error(),
		Payload:   map[string]interface{}{"app": appID},
	})
}

func (e *Engine) onVolumeError(appID string, err error) {
	e.opts.Diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentAudio,
		Event:     diaglog.EventVolumeFailed,
		Reason:    err.Error(),
		Payload:   map[string]interface{}{"app": appID},
	})
}

// dirtyMarker flags the status for the next flush on any observed change.
type dirtyMarker struct{ e *Engine }

func (d dirtyMarker) ActivityChanged(statemachine.ActivityType) { d.e.dirty = true }
func (d dirtyMarker) StandingChanged(bool)                      { d.e.dirty = true }
func (d dirtyMarker) TimeRemainingChanged(int)                  { d.e.dirty = true }
func (d dirtyMarker) PausedChanged(bool)                        { d.e.dirty = true }

func logf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}
