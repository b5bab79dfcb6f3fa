package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/contentforge/admin-console/internal/analytics"
)

func newQueueCommand(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and feed the worker queue",
	}
	cmd.AddCommand(newQueueStatsCommand(rt), newQueueTriggerCommand(rt))
	return cmd
}

func newQueueStatsCommand(rt Runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts of the default queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := rt.Queue(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := queue.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("inspect queue: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "QUEUE\t%s\n", stats.Queue)
			fmt.Fprintf(tw, "PENDING\t%d\n", stats.Pending)
			fmt.Fprintf(tw, "ACTIVE\t%d\n", stats.Active)
			fmt.Fprintf(tw, "SCHEDULED\t%d\n", stats.Scheduled)
			fmt.Fprintf(tw, "RETRY\t%d\n", stats.Retry)
			fmt.Fprintf(tw, "ARCHIVED\t%d\n", stats.Archived)
			if stats.Paused {
				fmt.Fprintln(tw, "PAUSED\tyes")
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stats as JSON")
	return cmd
}

func newQueueTriggerCommand(rt Runtime) *cobra.Command {
	filter := analytics.DefaultFilter()
	cmd := &cobra.Command{
		Use:       "trigger snapshot|warmup",
		Short:     "Enqueue a task for the worker",
		Long:      "trigger enqueues a dashboard snapshot or an analytics cache warmup on the default queue.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"snapshot", "warmup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := rt.Queue(cmd.Context())
			if err != nil {
				return err
			}
			var info *asynq.TaskInfo
			switch args[0] {
			case "snapshot":
				info, err = queue.TriggerSnapshot(cmd.Context())
			case "warmup":
				if !slices.Contains(analytics.Periods, filter.Period) || !slices.Contains(analytics.Ranges, filter.Days) {
					return fmt.Errorf("unsupported warmup window %s", filter.Key())
				}
				info, err = queue.TriggerWarmup(cmd.Context(), filter)
			}
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Period, "period", filter.Period, "Warmup bucket size (daily, weekly or monthly)")
	cmd.Flags().IntVar(&filter.Days, "days", filter.Days, "Warmup lookback in days")
	return cmd
}
