package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentforge/admin-console/internal/dashboard"
)

func newDashboardCommand(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Read the dashboard snapshot",
	}
	cmd.AddCommand(newDashboardWatchCommand(rt))
	return cmd
}

func newDashboardWatchCommand(rt Runtime) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the dashboard snapshot and print every result",
		Long:  "watch refreshes the shared dashboard snapshot on an interval until interrupted. Failed refreshes are printed and polling continues.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refresher, err := rt.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if once {
				snap, err := refresher.Refresh(cmd.Context())
				printSnapshot(out, snap, err)
				return err
			}
			poller := dashboard.NewPoller(refresher, interval, func(snap dashboard.Snapshot, err error) {
				printSnapshot(out, snap, err)
			})
			if err := poller.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", dashboard.DefaultRefreshInterval, "Time between refreshes")
	cmd.Flags().BoolVar(&once, "once", false, "Refresh a single time and exit")
	return cmd
}

func printSnapshot(out io.Writer, snap dashboard.Snapshot, err error) {
	stamp := snap.LastAttempt.Format(time.TimeOnly)
	if err != nil && !snap.Loaded() {
		fmt.Fprintf(out, "%s  refresh failed: %v\n", stamp, err)
		return
	}
	if !snap.Loaded() {
		fmt.Fprintf(out, "%s  no stats yet\n", stamp)
		return
	}
	s := snap.Stats
	fmt.Fprintf(out, "%s  users %d (%d active)  content %d  jobs %d  cpu %.1f%%  mem %.1f%%  disk %.1f%%\n",
		stamp, s.TotalUsers, s.ActiveUsers, s.TotalContentGroups, s.TotalJobsProcessed, s.CPUUsage, s.MemoryUsage, s.DiskUsage)
	if err != nil {
		fmt.Fprintf(out, "%s  refresh failed, showing data from %s: %v\n", stamp, snap.LastUpdated.Format(time.TimeOnly), err)
	}
}
