//go:build linux

package detector

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

type xprintidleSource struct {
	path string
}

// NewPlatformIdleSource returns the xprintidle-backed idle source, or an
// unsupported source when xprintidle is not installed.
func NewPlatformIdleSource() IdleSource {
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleSource{}
	}
	return &xprintidleSource{path: path}
}

func (s *xprintidleSource) IdleDuration(ctx context.Context) (time.Duration, error) {
	output, err := exec.CommandContext(ctx, s.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseXprintidle(output)
}
