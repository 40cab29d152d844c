package detector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// VolumeSettings is the system output state. VolumeUnknown is set when the
// system reported no output volume, as it does for some output devices.
type VolumeSettings struct {
	OutputVolume  int
	Muted         bool
	VolumeUnknown bool
}

// Audible reports whether sound would be heard at these settings. An unknown
// volume counts as audible unless the output is muted.
func (v VolumeSettings) Audible() bool {
	if v.Muted {
		return false
	}
	return v.VolumeUnknown || v.OutputVolume > 0
}

// VolumeProbe queries the system output volume.
type VolumeProbe interface {
	Volume(ctx context.Context) (VolumeSettings, error)
}

const volumeScript = "get volume settings"

var (
	outputVolumeRe = regexp.MustCompile(`output volume:\s*(\d+|missing value)`)
	outputMutedRe  = regexp.MustCompile(`output muted:\s*(true|false|missing value)`)
)

// ParseVolumeSettings parses the output of `get volume settings`, e.g.
// "output volume:50, input volume:75, alert volume:100, output muted:false".
func ParseVolumeSettings(out string) (VolumeSettings, error) {
	var vs VolumeSettings
	m := outputVolumeRe.FindStringSubmatch(out)
	if m == nil {
		return vs, fmt.Errorf("output volume not found in %q", out)
	}
	if m[1] == "missing value" {
		vs.VolumeUnknown = true
	} else {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return vs, fmt.Errorf("failed to parse output volume: %w", err)
		}
		vs.OutputVolume = n
	}
	if mm := outputMutedRe.FindStringSubmatch(out); mm != nil {
		vs.Muted = mm[1] == "true"
	}
	return vs, nil
}

// ScriptVolumeProbe reads volume settings through a ScriptRunner.
type ScriptVolumeProbe struct {
	Runner ScriptRunner
}

// Volume implements VolumeProbe.
func (p ScriptVolumeProbe) Volume(ctx context.Context) (VolumeSettings, error) {
	out, err := p.Runner.Run(ctx, volumeScript)
	if err != nil {
		return VolumeSettings{}, err
	}
	return ParseVolumeSettings(out)
}

// AudioPlaybackTracker remembers applications that were silent when they
// lost focus. Only global output volume is observable, so "silent" means the
// system was muted or at zero volume at that moment. The table holds at most
// limit entries; the least recently updated one is evicted first. Not safe
// for concurrent use: readers on other goroutines take a Silent copy.
type AudioPlaybackTracker struct {
	limit   int
	silent  map[string]uint64
	clock   uint64
	onError func(appID string, err error)
}

// NewAudioPlaybackTracker creates a tracker bounded to limit entries.
// onError, when non-nil, is called for every recorded query failure.
func NewAudioPlaybackTracker(limit int, onError func(appID string, err error)) *AudioPlaybackTracker {
	if limit < 1 {
		limit = 1
	}
	return &AudioPlaybackTracker{
		limit:   limit,
		silent:  make(map[string]uint64),
		onError: onError,
	}
}

// Record stores the output state read when appID lost focus. A failed query
// counts as audible, so a broken volume query can never hide a video.
func (t *AudioPlaybackTracker) Record(appID string, vs VolumeSettings, err error) {
	if appID == "" {
		return
	}
	if err != nil {
		if t.onError != nil {
			t.onError(appID, err)
		}
		delete(t.silent, appID)
		return
	}
	if vs.Audible() {
		delete(t.silent, appID)
		return
	}
	t.markSilent(appID)
}

// Silent returns a copy of the silent set that is safe to read from another
// goroutine.
func (t *AudioPlaybackTracker) Silent() AudioTable {
	out := make(silentSnapshot, len(t.silent))
	for id := range t.silent {
		out[id] = struct{}{}
	}
	return out
}

// IsSilent implements AudioTable. Unknown applications are not silent.
func (t *AudioPlaybackTracker) IsSilent(appID string) bool {
	if t == nil {
		return false
	}
	_, ok := t.silent[appID]
	return ok
}

// Len returns the number of applications currently marked silent.
func (t *AudioPlaybackTracker) Len() int {
	return len(t.silent)
}

// SetLimit changes the bound, evicting entries if needed.
func (t *AudioPlaybackTracker) SetLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	t.limit = limit
	for len(t.silent) > t.limit {
		t.evictOldest()
	}
}

func (t *AudioPlaybackTracker) markSilent(appID string) {
	t.clock++
	if _, ok := t.silent[appID]; !ok && len(t.silent) >= t.limit {
		t.evictOldest()
	}
	t.silent[appID] = t.clock
}

func (t *AudioPlaybackTracker) evictOldest() {
	var oldestID string
	var oldest uint64
	for id, at := range t.silent {
		if oldestID == "" || at < oldest {
			oldestID, oldest = id, at
		}
	}
	delete(t.silent, oldestID)
}

type silentSnapshot map[string]struct{}

func (s silentSnapshot) IsSilent(appID string) bool {
	_, ok := s[appID]
	return ok
}
