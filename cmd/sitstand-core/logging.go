package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/tiroq/sitstand/internal/logfile"
)

// logDir returns $SITSTAND_LOG_DIR or /tmp.
func logDir() string {
	if d := os.Getenv("SITSTAND_LOG_DIR"); d != "" {
		return d
	}
	return "/tmp"
}

// initLogging points outLog and errLog at capped files in dir. Both roll over
// to a single .old backup at logfile.DefaultMaxSize.
func initLogging(dir string) error {
	outFile, err := logfile.Open(filepath.Join(dir, "sitstand-core.out.log"), logfile.DefaultMaxSize)
	if err != nil {
		return err
	}
	errFile, err := logfile.Open(filepath.Join(dir, "sitstand-core.err.log"), logfile.DefaultMaxSize)
	if err != nil {
		_ = outFile.Close()
		return err
	}

	outLog = log.New(outFile, logPrefix+" ", log.LstdFlags)
	errLog = log.New(errFile, logPrefix+" ERROR: ", log.LstdFlags)
	return nil
}
