package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/contentforge/admin-console/internal/dashboard"
)

var defaultJobMetrics = NewMetrics(nil)

// DashboardSnapshotJob refreshes the snapshot every console instance reads,
// so the dashboard stays current when nobody has it open.
type DashboardSnapshotJob struct {
	Refresher dashboard.Refresher
	Logger    *slog.Logger
	Metrics   *Metrics
}

// NewDashboardSnapshotJob wires the snapshot handler.
func NewDashboardSnapshotJob(refresher dashboard.Refresher, logger *slog.Logger, metrics *Metrics) *DashboardSnapshotJob {
	return &DashboardSnapshotJob{Refresher: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardSnapshot. A failed refresh is retried by the
// next tick, not by asynq.
func (j *DashboardSnapshotJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("dashboard snapshot: handler not configured")
	}
	tracker := j.metrics().Track(TaskDashboardSnapshot)
	snap, err := j.Refresher.Refresh(ctx)
	if err != nil {
		j.logger().Warn("dashboard snapshot failed", slog.Any("error", err))
		return errors.Join(tracker.End(err), asynq.SkipRetry)
	}
	var users int64
	if snap.Stats != nil {
		users = snap.Stats.TotalUsers
	}
	j.logger().Debug("dashboard snapshot refreshed", slog.Int64("total_users", users))
	return tracker.End(nil)
}

func (j *DashboardSnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardSnapshot))
	}
	return slog.Default().With(slog.String("job", TaskDashboardSnapshot))
}

func (j *DashboardSnapshotJob) metrics() *Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
