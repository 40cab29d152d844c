//go:build darwin

package main

import (
	"runtime"

	"github.com/progrium/darwinkit/macos/appkit"
)

func init() {
	// AppKit must own the main thread.
	runtime.LockOSThread()
}

// runMainLoop runs daemon on a background goroutine while the main thread
// runs the AppKit event loop. NSWorkspace only refreshes the frontmost
// application while that loop runs. The process exits with daemon's code.
func runMainLoop(daemon func() int) {
	app := appkit.Application_SharedApplication()
	app.SetActivationPolicy(appkit.ApplicationActivationPolicyAccessory)
	go func() {
		exit(daemon())
	}()
	app.Run()
}
