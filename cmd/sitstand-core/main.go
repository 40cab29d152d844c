package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tiroq/sitstand/internal/config"
	"github.com/tiroq/sitstand/internal/diaglog"
	"github.com/tiroq/sitstand/internal/engine"
	"github.com/tiroq/sitstand/internal/feed"
	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/pidfile"
	"github.com/tiroq/sitstand/pkg/macui"
)

const logPrefix = "[sitstand-core]"

var (
	// Version is set at build time via -ldflags "-X main.Version=..."
	Version = "dev"

	outLog *log.Logger
	errLog *log.Logger

	exit = os.Exit
)

type options struct {
	configPath string
	exportDiag bool
	exportDest string
	autostart  bool
	version    bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("sitstand-core", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to config file")
	fs.BoolVar(&opts.exportDiag, "export-diag", false, "Write a diagnostic bundle and exit")
	fs.StringVar(&opts.exportDest, "dest", ".", "Directory for --export-diag output")
	fs.BoolVar(&opts.autostart, "autostart", false, "Start the countdown immediately")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if opts.version {
		fmt.Println("sitstand-core " + Version)
		return
	}

	if opts.exportDiag {
		os.Exit(exportDiag(opts.exportDest))
	}

	runMainLoop(func() int {
		// Recover from any panics and log them
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "PANIC in sitstand-core: %v\n", r)
				if errLog != nil {
					errLog.Printf("PANIC: %v", r)
				}
				os.Exit(1)
			}
		}()

		if err := initLogging(logDir()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
			return 1
		}
		if err := run(opts); err != nil {
			errLog.Printf("%v", err)
			return 1
		}
		return 0
	})
}

func run(opts *options) error {
	outLog.Println("===========================================")
	outLog.Println("Starting Sitstand Core v" + Version + "...")
	outLog.Printf("PID: %d", os.Getpid())
	outLog.Printf("Timestamp: %s", time.Now().Format(time.RFC3339))
	outLog.Println("===========================================")

	// Check for duplicate instances
	pidFilePath := pidfile.GetPIDFilePath("sitstand-core")
	outLog.Printf("Checking PID file: %s", pidFilePath)
	pf, err := pidfile.New(pidFilePath)
	if err != nil {
		if errors.Is(err, pidfile.ErrAlreadyRunning) {
			errLog.Printf("If you're sure no other instance is running, remove: %s", pidFilePath)
		}
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer func() {
		outLog.Println("[SHUTDOWN] Removing PID file...")
		if err := pf.Remove(); err != nil {
			errLog.Printf("Warning: failed to remove PID file: %v", err)
		}
	}()

	outLog.Printf("[STARTUP] Loading configuration from %s...", opts.configPath)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	outLog.Printf("[STARTUP] Config: idle_threshold=%s, sample_interval=%s, position_period=%s, browsers=%d, meeting=%d/%d, video=%d/%d",
		cfg.IdleThreshold, cfg.SampleInterval, cfg.PositionPeriod, len(cfg.Browsers),
		len(cfg.Meeting.Apps), len(cfg.Meeting.Domains), len(cfg.Video.Apps), len(cfg.Video.Domains))

	logPath := diaglog.LogPath()
	diagLogger, diagErr := diaglog.New(logPath)
	if diagErr != nil {
		errLog.Printf("[STARTUP] WARNING: could not open diagnostic log at %s: %v (continuing)", logPath, diagErr)
		diagLogger = diaglog.NewNoOp()
	}
	defer func() { _ = diagLogger.Close() }()
	diaglog.Version = Version
	if diagLogger.Enabled() {
		outLog.Printf("[STARTUP] Diagnostic logging enabled: %s", logPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *feed.Hub
	if cfg.FeedAddr != "" {
		hub = feed.NewHub(errLog, diagLogger)
		srv, err := feed.Listen(cfg.FeedAddr, hub)
		if err != nil {
			return fmt.Errorf("failed to start event feed on %s: %w", cfg.FeedAddr, err)
		}
		outLog.Printf("[STARTUP] Event feed listening on ws://%s/events", srv.Addr())
		defer func() {
			outLog.Println("[SHUTDOWN] Stopping event feed...")
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errLog.Printf("Feed shutdown: %v", err)
			}
		}()
	}

	eng := engine.New(cfg, engine.PlatformSources(), engine.Options{
		Notifier:    macui.NewNotifier(),
		Hub:         hub,
		WriteStatus: ipc.WriteStatus,
		OutLog:      outLog,
		ErrLog:      errLog,
		Diag:        diagLogger,
	})
	defer func() {
		if err := ipc.RemoveStatus(); err != nil {
			errLog.Printf("Warning: failed to remove status file: %v", err)
		}
	}()
	if opts.autostart {
		eng.Timer().Start()
		outLog.Println("[STARTUP] Countdown started")
	}

	reloads, err := config.Watch(ctx, opts.configPath, errLog)
	if err != nil {
		errLog.Printf("[STARTUP] Config hot reload disabled: %v", err)
		reloads = nil
	}

	outLog.Println("[STARTUP] Starting command file watcher...")
	commands := make(chan ipc.Command, 8)
	go ipc.WatchCommands(ctx, commands, outLog, errLog)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			outLog.Printf("[SHUTDOWN] Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	outLog.Println("[STARTUP] Signal handlers registered (SIGINT, SIGTERM)")

	outLog.Printf("[STARTUP] Sampling every %s", cfg.SampleInterval)
	outLog.Println("===========================================")
	outLog.Println("[RUNNING] Sitstand Core is running")

	err = eng.Run(ctx, commands, reloads)
	cancel()
	outLog.Println("[SHUTDOWN] Sitstand Core stopped")
	return err
}

func exportDiag(dest string) int {
	diaglog.Version = Version
	path, n, err := diaglog.Export(diaglog.LogPath(), dest)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "hint: run with SITSTAND_DEBUG=true to enable logging")
			return 1
		}
		return 2
	}
	fmt.Printf("Wrote: %s (%d lines)\n", path, n)
	return 0
}
