// Package detector gathers the ambient signals used to classify what the user
// is doing: system idle time, the frontmost application, the active browser
// tab and per-application audio state.
package detector

import (
	"context"
	"time"
)

// ForegroundContext describes the frontmost application for one tick.
type ForegroundContext struct {
	ApplicationID string `json:"application_id"` // Bundle identifier, empty if unknown
	TabAddress    string `json:"tab_address"`    // Active tab URL, only meaningful when HasTab
	HasTab        bool   `json:"has_tab"`
}

// DetectionState is the result of one sampling tick.
type DetectionState struct {
	Context     ForegroundContext `json:"context"`
	Meeting     bool              `json:"meeting"`      // MeetingClassifier verdict
	Video       bool              `json:"video"`        // VideoClassifier verdict
	IdleSeconds float64           `json:"idle_seconds"` // Zero when not sampled
	IdleSampled bool              `json:"idle_sampled"` // False when a meeting or video made idle irrelevant
	EvaluatedAt time.Time         `json:"evaluated_at"`
	FocusLost   *FocusLoss        `json:"-"` // Set when the frontmost application changed
}

// FocusLoss is the output state read when an application lost focus. Err is
// set when the volume query failed.
type FocusLoss struct {
	ApplicationID string
	Volume        VolumeSettings
	Err           error
}

// Request carries the inputs a detection needs from the goroutine that owns
// the classification state. Rules and Audio are only read.
type Request struct {
	Rules   *RuleSet
	Audio   AudioTable
	Timeout time.Duration // Bound on each OS query, zero for none
}

// Detector queries the OS for one classification tick. It keeps only the
// previous frontmost application, so it can run on a worker goroutine while
// the audio table stays with its owner. Not safe for concurrent use.
type Detector struct {
	sampler  *ActivitySampler
	resolver *ForegroundResolver
	volume   VolumeProbe
	lastApp  string
}

// New wires a Detector from its collaborators.
func New(sampler *ActivitySampler, resolver *ForegroundResolver, volume VolumeProbe) *Detector {
	return &Detector{
		sampler:  sampler,
		resolver: resolver,
		volume:   volume,
	}
}

// Detect samples every signal once and classifies the result. When the
// frontmost application changed since the previous call, the output volume is
// read and returned in FocusLost for the application that lost focus. Focus
// changes are only seen at sample points: switching away and back between
// two calls is not reported.
func (d *Detector) Detect(ctx context.Context, req Request) *DetectionState {
	qctx, cancel := bounded(ctx, req.Timeout)
	fc := d.resolver.Resolve(qctx, req.Rules)
	cancel()

	state := &DetectionState{Context: fc}
	if fc.ApplicationID != "" && fc.ApplicationID != d.lastApp {
		if d.lastApp != "" {
			qctx, cancel := bounded(ctx, req.Timeout)
			vs, err := d.volume.Volume(qctx)
			cancel()
			state.FocusLost = &FocusLoss{ApplicationID: d.lastApp, Volume: vs, Err: err}
		}
		d.lastApp = fc.ApplicationID
	}

	state.Meeting = req.Rules.IsMeeting(fc)
	state.Video = req.Rules.IsVideo(fc, req.Audio)
	if !state.Meeting && !state.Video {
		qctx, cancel := bounded(ctx, req.Timeout)
		state.IdleSeconds = d.sampler.SampleIdleSeconds(qctx)
		cancel()
		state.IdleSampled = true
	}
	state.EvaluatedAt = time.Now()
	return state
}

func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
