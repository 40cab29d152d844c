package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiroq/sitstand/internal/autoupdate"
	"github.com/tiroq/sitstand/internal/diaglog"
	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/pidfile"
)

const (
	daemonName   = "sitstand-core"
	releaseOwner = "tiroq"
	releaseRepo  = "sitstand"
)

// releaseAPIURL overrides the GitHub releases API root; tests point it at a
// local server.
var releaseAPIURL = os.Getenv("SITSTAND_RELEASES_API")

var errNotRunning = errors.New(daemonName + " is not running")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sitstand-ctl",
		Short:         "Control the sitstand posture reminder",
		Long:          "sitstand-ctl sends commands to sitstand-core, shows the current position and countdown, and exports diagnostics.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	for _, c := range []struct {
		cmd   ipc.Command
		short string
	}{
		{ipc.CmdStart, "Start or resume the countdown"},
		{ipc.CmdStop, "Stop the countdown"},
		{ipc.CmdToggle, "Start a stopped countdown or stop a running one"},
		{ipc.CmdPause, "Pause or resume the countdown"},
		{ipc.CmdSwitch, "Switch position now"},
		{ipc.CmdQuit, "Shut the daemon down"},
	} {
		rootCmd.AddCommand(newControlCmd(c.cmd, c.short))
	}

	rootCmd.AddCommand(
		newStatusCmd(),
		newExportDiagCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newControlCmd(command ipc.Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := daemonRunning(); !ok {
				return errNotRunning
			}
			if err := ipc.WriteCommand(command); err != nil {
				return fmt.Errorf("send %s: %w", command, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sent: %s\n", command)
			return err
		},
	}
}

func newExportDiagCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "export-diag",
		Short: "Write a diagnostic bundle from the debug log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diaglog.Version = Version
			path, n, err := diaglog.Export(diaglog.LogPath(), dest)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%w (run %s with SITSTAND_DEBUG=true to enable logging)", err, daemonName)
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s (%d lines)\n", path, n)
			return err
		},
	}
	cmd.Flags().StringVar(&dest, "dest", ".", "Output directory")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var (
		check   bool
		channel string
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), Version); err != nil {
				return err
			}
			if !check {
				return nil
			}

			ch, err := autoupdate.ParseChannel(channel)
			if err != nil {
				return err
			}
			uc := autoupdate.NewUpdateChecker(releaseOwner, releaseRepo, Version)
			uc.SetChannel(ch)
			if releaseAPIURL != "" {
				uc.SetAPIURL(releaseAPIURL)
			}
			available, release, err := uc.IsUpdateAvailable(cmd.Context())
			if err != nil {
				return fmt.Errorf("check for updates: %w", err)
			}
			if !available {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Up to date")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Update available: %s %s\n", release.TagName, release.HTMLURL)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	cmd.Flags().StringVar(&channel, "channel", string(autoupdate.ChannelStable), "Release channel: stable, prerelease or dev")
	return cmd
}

func daemonRunning() (int, bool) {
	return pidfile.Running(pidfile.GetPIDFilePath(daemonName))
}
