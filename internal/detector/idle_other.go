//go:build !darwin && !linux

package detector

// NewPlatformIdleSource returns a source that always fails with ErrUnsupported.
func NewPlatformIdleSource() IdleSource {
	return unsupportedIdleSource{}
}
