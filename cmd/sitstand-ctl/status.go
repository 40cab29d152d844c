package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/pkg/macui"
)

func newStatusCmd() *cobra.Command {
	var (
		asJSON bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show position, countdown and activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pid, running := daemonRunning()
			if !running {
				return errNotRunning
			}

			status, err := ipc.ReadStatus()
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("%s (PID %d) has not written a status yet", daemonName, pid)
				}
				return fmt.Errorf("read status: %w", err)
			}
			if err := writeStatus(cmd, status, asJSON); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			updates := make(chan *ipc.StatusSnapshot, 1)
			errc := make(chan error, 1)
			go func() { errc <- ipc.WatchStatus(cmd.Context(), updates, nil) }()
			last := status.Title
			for {
				select {
				case s := <-updates:
					// Each tick rewrites the file; print only visible changes.
					if !asJSON && s.Title == last {
						continue
					}
					last = s.Title
					if err := writeStatus(cmd, s, asJSON); err != nil {
						return err
					}
				case err := <-errc:
					return err
				}
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing updates until interrupted")
	return cmd
}

func writeStatus(cmd *cobra.Command, status *ipc.StatusSnapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), macui.DescribeStatus(status))
	return err
}
