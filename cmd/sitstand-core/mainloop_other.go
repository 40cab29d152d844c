//go:build !darwin

package main

// runMainLoop runs daemon on the calling goroutine and exits with its code.
func runMainLoop(daemon func() int) {
	exit(daemon())
}
