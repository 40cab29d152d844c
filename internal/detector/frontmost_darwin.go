//go:build darwin

package detector

import (
	"runtime"

	"github.com/progrium/darwinkit/macos/appkit"
	"github.com/progrium/darwinkit/objc"
)

// WorkspaceApps reads the frontmost application from NSWorkspace. The value
// is only kept current while the process runs the AppKit main loop.
type WorkspaceApps struct {
	workspace appkit.Workspace
}

// NewWorkspaceApps returns the platform AppSource.
func NewWorkspaceApps() *WorkspaceApps {
	return &WorkspaceApps{
		workspace: appkit.Workspace_SharedWorkspace(),
	}
}

// FrontmostApp returns the bundle identifier of the frontmost application,
// or "" when there is none. Callers run on goroutines without an autorelease
// pool, so each call drains its own on a locked thread.
func (w *WorkspaceApps) FrontmostApp() string {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var id string
	objc.WithAutoreleasePool(func() {
		app := w.workspace.FrontmostApplication()
		if app.Ptr() == nil {
			return
		}
		id = app.BundleIdentifier()
	})
	return id
}
