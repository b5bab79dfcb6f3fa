package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/contentforge/admin-console/internal/analytics"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardSnapshot refreshes the shared dashboard snapshot.
	TaskDashboardSnapshot = "dashboard:snapshot"
	// TaskAnalyticsWarmup preloads the analytics cache.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// DashboardSnapshotCron is how often the scheduler enqueues a snapshot.
const DashboardSnapshotCron = "@every 30s"

// AnalyticsWarmupPayload lists the filters to preload. Empty means the
// page's default filter.
type AnalyticsWarmupPayload struct {
	Filters []analytics.Filter `json:"filters,omitempty"`
}

// NewDashboardSnapshotTask builds the snapshot task. It carries no payload.
func NewDashboardSnapshotTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardSnapshot, nil)
}

// NewAnalyticsWarmupTask builds a warmup task for filters.
func NewAnalyticsWarmupTask(filters ...analytics.Filter) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsWarmupPayload{Filters: filters})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}
