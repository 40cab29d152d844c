//go:build !darwin

package detector

// WorkspaceApps is a stub on platforms without NSWorkspace.
type WorkspaceApps struct{}

// NewWorkspaceApps returns the platform AppSource.
func NewWorkspaceApps() *WorkspaceApps {
	return &WorkspaceApps{}
}

// FrontmostApp always returns "" on this platform.
func (w *WorkspaceApps) FrontmostApp() string {
	return ""
}
