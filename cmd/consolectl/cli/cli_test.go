package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/diagnostics"
	"github.com/contentforge/admin-console/jobs"
)

type stubQueue struct {
	stats   jobs.QueueStats
	warmups []analytics.Filter
}

func (q *stubQueue) Stats(context.Context) (jobs.QueueStats, error) { return q.stats, nil }

func (q *stubQueue) TriggerSnapshot(context.Context) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "t-1", Queue: jobs.QueueDefault, Type: jobs.TaskDashboardSnapshot}, nil
}

func (q *stubQueue) TriggerWarmup(_ context.Context, f analytics.Filter) (*asynq.TaskInfo, error) {
	q.warmups = append(q.warmups, f)
	return &asynq.TaskInfo{ID: "t-2", Queue: jobs.QueueDefault, Type: jobs.TaskAnalyticsWarmup}, nil
}

type refresherFunc func(ctx context.Context) (dashboard.Snapshot, error)

func (f refresherFunc) Refresh(ctx context.Context) (dashboard.Snapshot, error) { return f(ctx) }

type runnerFunc func(ctx context.Context, sess diagnostics.Session) diagnostics.Report

func (f runnerFunc) Run(ctx context.Context, sess diagnostics.Session) diagnostics.Report {
	return f(ctx, sess)
}

type stubRuntime struct {
	queue     *stubQueue
	refresher dashboard.Refresher
	runner    diagnostics.Runner
}

func (r stubRuntime) Queue(context.Context) (Queue, error) { return r.queue, nil }
func (r stubRuntime) Dashboard(context.Context) (dashboard.Refresher, error) {
	return r.refresher, nil
}
func (r stubRuntime) Diagnostics(context.Context) (diagnostics.Runner, error) { return r.runner, nil }

func run(t *testing.T, ctx context.Context, rt Runtime, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd := NewRootCommand(rt)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

var attempt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func loadedSnapshot() dashboard.Snapshot {
	return dashboard.Snapshot{
		Stats: &analytics.Overview{
			TotalUsers: 120, ActiveUsers: 45, TotalContentGroups: 12, TotalJobsProcessed: 900,
			CPUUsage: 12.5, MemoryUsage: 40, DiskUsage: 61.3,
		},
		LastUpdated: attempt,
		LastAttempt: attempt,
	}
}

func TestQueueStatsTable(t *testing.T) {
	rt := stubRuntime{queue: &stubQueue{stats: jobs.QueueStats{Queue: "default", Pending: 3, Active: 1, Retry: 2}}}

	out, err := run(t, context.Background(), rt, "queue", "stats")
	require.NoError(t, err)
	assert.Regexp(t, `QUEUE\s+default`, out)
	assert.Regexp(t, `PENDING\s+3`, out)
	assert.Regexp(t, `RETRY\s+2`, out)
	assert.NotContains(t, out, "PAUSED")
}

func TestQueueStatsJSON(t *testing.T) {
	rt := stubRuntime{queue: &stubQueue{stats: jobs.QueueStats{Queue: "default", Pending: 3, Paused: true}}}

	out, err := run(t, context.Background(), rt, "queue", "stats", "--json")
	require.NoError(t, err)
	var stats jobs.QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Pending)
	assert.True(t, stats.Paused)
}

func TestQueueTrigger(t *testing.T) {
	queue := &stubQueue{}
	rt := stubRuntime{queue: queue}

	out, err := run(t, context.Background(), rt, "queue", "trigger", "snapshot")
	require.NoError(t, err)
	assert.Equal(t, "enqueued dashboard:snapshot as t-1 on default\n", out)

	out, err = run(t, context.Background(), rt, "queue", "trigger", "warmup", "--period", "weekly", "--days", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "analytics:warmup")
	require.Len(t, queue.warmups, 1)
	assert.Equal(t, analytics.Filter{Period: "weekly", Days: 90}, queue.warmups[0])
}

func TestQueueTriggerRejectsBadInput(t *testing.T) {
	queue := &stubQueue{}
	rt := stubRuntime{queue: queue}

	_, err := run(t, context.Background(), rt, "queue", "trigger", "reindex")
	require.Error(t, err)

	_, err = run(t, context.Background(), rt, "queue", "trigger", "warmup", "--days", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily-12d")
	assert.Empty(t, queue.warmups)
}

func TestDashboardWatchOnce(t *testing.T) {
	rt := stubRuntime{refresher: refresherFunc(func(context.Context) (dashboard.Snapshot, error) {
		return loadedSnapshot(), nil
	})}

	out, err := run(t, context.Background(), rt, "dashboard", "watch", "--once")
	require.NoError(t, err)
	assert.Equal(t, "09:30:00  users 120 (45 active)  content 12  jobs 900  cpu 12.5%  mem 40.0%  disk 61.3%\n", out)
}

func TestDashboardWatchKeepsPollingAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	rt := stubRuntime{refresher: refresherFunc(func(context.Context) (dashboard.Snapshot, error) {
		calls++
		switch calls {
		case 1:
			return dashboard.Snapshot{LastAttempt: attempt}, errors.New("Network error")
		case 2:
			return loadedSnapshot(), nil
		default:
			cancel()
			return loadedSnapshot(), nil
		}
	})}

	out, err := run(t, ctx, rt, "dashboard", "watch", "--interval", "1ms")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "09:30:00  refresh failed: Network error", lines[0])
	assert.Contains(t, lines[1], "users 120")
}

func TestHealthReportsFailures(t *testing.T) {
	var seen diagnostics.Session
	rt := stubRuntime{runner: runnerFunc(func(_ context.Context, sess diagnostics.Session) diagnostics.Report {
		seen = sess
		return diagnostics.Report{Checks: []diagnostics.Check{
			{Name: diagnostics.CheckBackend, Status: diagnostics.StatusSuccess, Message: "Backend server is running (ok)"},
			{Name: diagnostics.CheckRedis, Status: diagnostics.StatusError, Message: "Redis unreachable", Action: "Check REDIS_ADDR"},
		}}
	})}

	out, err := run(t, context.Background(), rt, "health")
	require.ErrorIs(t, err, ErrUnhealthy)
	assert.Nil(t, seen.Identity)
	assert.Less(t, strings.Index(out, "Redis unreachable"), strings.Index(out, "Backend server is running"))
	assert.Contains(t, out, "-> Check REDIS_ADDR")
	assert.Contains(t, out, "error: 1 passed, 0 warnings, 1 errors")
}

func TestHealthJSON(t *testing.T) {
	rt := stubRuntime{runner: runnerFunc(func(context.Context, diagnostics.Session) diagnostics.Report {
		return diagnostics.Report{Checks: []diagnostics.Check{
			{Name: diagnostics.CheckAuth, Status: diagnostics.StatusWarning, Message: "No active admin session"},
		}}
	})}

	out, err := run(t, context.Background(), rt, "health", "--json")
	require.NoError(t, err)
	var body struct {
		Overall string `json:"overall"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "warning", body.Overall)
}
