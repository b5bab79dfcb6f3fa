package cli

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/diagnostics"
	"github.com/contentforge/admin-console/jobs"
)

var (
	version = "dev"
	commit  = "none"
)

// Queue is the worker queue as the operator sees it.
type Queue interface {
	Stats(ctx context.Context) (jobs.QueueStats, error)
	TriggerSnapshot(ctx context.Context) (*asynq.TaskInfo, error)
	TriggerWarmup(ctx context.Context, filter analytics.Filter) (*asynq.TaskInfo, error)
}

// Runtime opens the services commands act on. Each accessor connects on
// first use so a command only needs what it touches.
type Runtime interface {
	Queue(ctx context.Context) (Queue, error)
	Dashboard(ctx context.Context) (dashboard.Refresher, error)
	Diagnostics(ctx context.Context) (diagnostics.Runner, error)
}

// NewRootCommand assembles consolectl around rt.
func NewRootCommand(rt Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "consolectl",
		Short: "Operate the admin console from the terminal",
		Long: `consolectl inspects and drives the admin console's background work.

It reads the same environment (or .env file) as the console and worker.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newQueueCommand(rt), newDashboardCommand(rt), newHealthCommand(rt))
	return root
}
