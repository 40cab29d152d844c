package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned by idle sources on platforms without an idle query.
var ErrUnsupported = errors.New("idle detection not supported on this platform")

// IdleSource reports how long the system has seen no keyboard or mouse input.
type IdleSource interface {
	IdleDuration(ctx context.Context) (time.Duration, error)
}

// ActivitySampler turns an IdleSource into the conservative value the
// classifier consumes: any failure reads as zero idle time.
type ActivitySampler struct {
	source  IdleSource
	onError func(err error)
}

// NewActivitySampler wraps source. onError, when non-nil, is called for
// every failed query.
func NewActivitySampler(source IdleSource, onError func(err error)) *ActivitySampler {
	return &ActivitySampler{source: source, onError: onError}
}

// SampleIdleSeconds never fails; it returns 0 when the idle time cannot be
// read. The query is bounded by ctx.
func (s *ActivitySampler) SampleIdleSeconds(ctx context.Context) float64 {
	d, err := s.source.IdleDuration(ctx)
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return 0
	}
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from `ioreg -c IOHIDSystem` output.
// Format: "HIDIdleTime" = 123456789
func parseHIDIdleTime(output []byte) (time.Duration, error) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		lineStr := string(bytes.TrimSpace(line))
		if !strings.Contains(lineStr, `"HIDIdleTime"`) {
			continue
		}
		parts := strings.SplitN(lineStr, "=", 2)
		if len(parts) != 2 {
			continue
		}
		valueStr := strings.TrimSpace(parts[1])
		value, err := strconv.ParseInt(valueStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse idle time value: %w", err)
		}
		if value < 0 {
			value = 0
		}
		return time.Duration(value), nil
	}
	return 0, errors.New("HIDIdleTime not found in ioreg output")
}

// parseXprintidle parses xprintidle output (milliseconds).
func parseXprintidle(output []byte) (time.Duration, error) {
	value := strings.TrimSpace(string(output))
	idleMillis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if idleMillis < 0 {
		idleMillis = 0
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

type unsupportedIdleSource struct{}

func (unsupportedIdleSource) IdleDuration(context.Context) (time.Duration, error) {
	return 0, ErrUnsupported
}
