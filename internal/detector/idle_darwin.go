//go:build darwin

package detector

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

type ioregIdleSource struct {
	cmdExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewPlatformIdleSource returns the ioreg-backed idle source.
func NewPlatformIdleSource() IdleSource {
	return &ioregIdleSource{cmdExecutor: defaultCmdExecutor}
}

func defaultCmdExecutor(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (s *ioregIdleSource) IdleDuration(ctx context.Context) (time.Duration, error) {
	output, err := s.cmdExecutor(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("failed to execute ioreg: %w", err)
	}
	return parseHIDIdleTime(output)
}
