package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MatchSet is a list of application identifiers and address fragments that
// identify one activity kind.
type MatchSet struct {
	Apps    []string `yaml:"apps"`    // Bundle identifiers matched exactly
	Domains []string `yaml:"domains"` // Substrings matched against the lower-cased tab address
}

// Config holds all daemon configuration
type Config struct {
	IdleThreshold   time.Duration `yaml:"idle_threshold"`    // No-input duration before Idle
	SampleInterval  time.Duration `yaml:"sample_interval"`   // Classification tick
	PositionPeriod  time.Duration `yaml:"position_period"`   // Sit/stand period
	ScriptTimeout   time.Duration `yaml:"script_timeout"`    // Bound on every osascript/ioreg call
	AudioTableLimit int           `yaml:"audio_table_limit"` // Max tracked silent applications
	FeedAddr        string        `yaml:"feed_addr"`         // Loopback WebSocket feed, empty disables
	Browsers        []string      `yaml:"browsers"`
	Meeting         MatchSet      `yaml:"meeting"`
	Video           MatchSet      `yaml:"video"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		IdleThreshold:   60 * time.Second,
		SampleInterval:  time.Second,
		PositionPeriod:  30 * time.Minute,
		ScriptTimeout:   1500 * time.Millisecond,
		AudioTableLimit: 64,
		Browsers: []string{
			"com.google.Chrome",
			"com.apple.Safari",
			"com.microsoft.edgemac",
			"org.mozilla.firefox",
			"com.brave.Browser",
			"com.operasoftware.Opera",
			"com.vivaldi.Vivaldi",
		},
		Meeting: MatchSet{
			Apps: []string{
				"us.zoom.xos",
				"com.microsoft.teams",
				"com.microsoft.teams2",
				"com.google.meet",
				"com.cisco.webex.meetings",
				"com.cisco.webexmeetings",
				"com.webex.meetingmanager",
				"com.skype.skype",
				"com.bluejeans.BlueJeans",
				"com.ringcentral.ringcentralformac",
				"com.ringcentral.RingCentral",
				"com.logmein.gotomeeting",
				"com.discord",
				"com.tinyspeck.slackmacgap",
			},
			Domains: []string{
				"zoom.us",
				"teams.microsoft.com",
				"meet.google.com",
				"webex.com",
				"meet.jit.si",
				"whereby.com",
				"8x8.vc",
				"gotomeeting.com",
				"bluejeans.com",
				"slack.com/calls",
				"discord.com/channels",
			},
		},
		Video: MatchSet{
			Apps: []string{
				"com.apple.QuickTimePlayerX",
				"com.apple.TV",
				"com.netflix.Netflix",
				"com.amazon.PrimeVideo",
				"com.disney.disneyplus",
				"com.hulu.plus",
				"com.google.chrome.app.HBO-NOW",
				"com.peacocktv.peacockdesktop",
				"tv.plex.plex",
				"com.mpv",
				"org.videolan.vlc",
				"com.colliderli.iina",
				"com.apple.Preview",
			},
			Domains: []string{
				"netflix.com",
				"youtube.com",
				"vimeo.com",
				"hulu.com",
				"primevideo.amazon.com",
				"disneyplus.com",
				"hbomax.com",
				"peacocktv.com",
				"paramount.com",
				"discoveryplus.com",
				"twitch.tv",
				"dailymotion.com",
				"ted.com",
				"coursera.org",
				"udemy.com",
				"linkedin.com/learning",
				"pluralsight.com",
			},
		},
	}
}

// DefaultPath returns $SITSTAND_CONFIG, or ~/.config/sitstand/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("SITSTAND_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "sitstand", "config.yaml")
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (a missing file is not an error), then environment overrides. The
// result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durationKeys are the fields that accept a bare number of seconds in YAML,
// matching the environment overrides.
var durationKeys = map[string]bool{
	"idle_threshold":  true,
	"sample_interval": true,
	"position_period": true,
	"script_timeout":  true,
}

// UnmarshalYAML decodes a config mapping. Duration fields take either a Go
// duration string ("90s", "30m") or a plain number of seconds.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if !durationKeys[key.Value] || val.Kind != yaml.ScalarNode {
				continue
			}
			switch val.ShortTag() {
			case "!!int", "!!float":
				val.Value += "s"
				val.Tag = "!!str"
			}
		}
	}
	type plain Config
	return node.Decode((*plain)(c))
}

// Save validates cfg and writes it to path as YAML.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SITSTAND_IDLE_THRESHOLD"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("SITSTAND_IDLE_THRESHOLD: %w", err)
		}
		c.IdleThreshold = d
	}
	if v, ok := os.LookupEnv("SITSTAND_FEED_ADDR"); ok {
		c.FeedAddr = v
	}
	return nil
}

// parseSeconds accepts either a Go duration ("90s") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks Config for validity
func (c *Config) Validate() error {
	if c.IdleThreshold < time.Second {
		return fmt.Errorf("idle_threshold must be at least 1s, got %s", c.IdleThreshold)
	}
	if c.SampleInterval < time.Second || c.SampleInterval > 10*time.Second {
		return fmt.Errorf("sample_interval must be between 1s and 10s, got %s", c.SampleInterval)
	}
	if c.PositionPeriod < time.Minute {
		return fmt.Errorf("position_period must be at least 1m, got %s", c.PositionPeriod)
	}
	if c.ScriptTimeout <= 0 || c.ScriptTimeout >= 5*c.SampleInterval {
		return fmt.Errorf("script_timeout must be positive and below %s, got %s", 5*c.SampleInterval, c.ScriptTimeout)
	}
	if c.AudioTableLimit < 1 {
		return fmt.Errorf("audio_table_limit must be at least 1, got %d", c.AudioTableLimit)
	}
	if c.FeedAddr != "" {
		if err := validateLoopback(c.FeedAddr); err != nil {
			return fmt.Errorf("feed_addr: %w", err)
		}
	}

	lists := map[string][]string{
		"browsers":        c.Browsers,
		"meeting.apps":    c.Meeting.Apps,
		"meeting.domains": c.Meeting.Domains,
		"video.apps":      c.Video.Apps,
		"video.domains":   c.Video.Domains,
	}
	for name, list := range lists {
		for i, s := range list {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s[%d] must not be empty", name, i)
			}
		}
	}
	return nil
}

// PositionSeconds returns the position period in whole seconds.
func (c *Config) PositionSeconds() int {
	return int(c.PositionPeriod / time.Second)
}

func validateLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("host %q is not a loopback address", host)
	}
	return nil
}
