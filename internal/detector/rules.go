package detector

import (
	"strings"

	"github.com/tiroq/sitstand/internal/config"
)

// AudioTable reports applications known to produce no audible output.
type AudioTable interface {
	IsSilent(appID string) bool
}

// RuleSet holds the identifier sets the classifiers match against. Domains
// are lower-cased once at construction.
type RuleSet struct {
	browsers       map[string]bool
	meetingApps    map[string]bool
	videoApps      map[string]bool
	meetingDomains []string
	videoDomains   []string
}

// NewRuleSet compiles the identifier sets from cfg.
func NewRuleSet(cfg *config.Config) *RuleSet {
	return &RuleSet{
		browsers:       toSet(cfg.Browsers),
		meetingApps:    toSet(cfg.Meeting.Apps),
		videoApps:      toSet(cfg.Video.Apps),
		meetingDomains: lowerAll(cfg.Meeting.Domains),
		videoDomains:   lowerAll(cfg.Video.Domains),
	}
}

// IsBrowser reports whether appID is a known browser.
func (r *RuleSet) IsBrowser(appID string) bool {
	return r.browsers[appID]
}

// IsMeeting is the MeetingClassifier: a dedicated meeting application, or a
// browser whose active tab address contains a meeting domain.
func (r *RuleSet) IsMeeting(fc ForegroundContext) bool {
	if r.meetingApps[fc.ApplicationID] {
		return true
	}
	return r.browserTabMatches(fc, r.meetingDomains)
}

// IsVideo is the VideoClassifier: a dedicated video application, or a browser
// on a streaming domain that is not known to be silent.
func (r *RuleSet) IsVideo(fc ForegroundContext, audio AudioTable) bool {
	if r.videoApps[fc.ApplicationID] {
		return true
	}
	if !r.browserTabMatches(fc, r.videoDomains) {
		return false
	}
	return audio == nil || !audio.IsSilent(fc.ApplicationID)
}

func (r *RuleSet) browserTabMatches(fc ForegroundContext, domains []string) bool {
	if !fc.HasTab || !r.browsers[fc.ApplicationID] {
		return false
	}
	addr := strings.ToLower(fc.TabAddress)
	for _, d := range domains {
		if strings.Contains(addr, d) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}
