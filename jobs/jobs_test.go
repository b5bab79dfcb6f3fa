package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/dashboard"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) (dashboard.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return dashboard.Snapshot{}, f.err
	}
	return dashboard.Snapshot{Stats: &analytics.Overview{TotalUsers: 7}}, nil
}

func TestDashboardSnapshotJob(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	refresher := &fakeRefresher{}
	job := NewDashboardSnapshotJob(refresher, discard, metrics)

	require.NoError(t, job.Handle(context.Background(), NewDashboardSnapshotTask()))
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues(TaskDashboardSnapshot, "success")))

	refresher.err = errors.New("backend down")
	err := job.Handle(context.Background(), NewDashboardSnapshotTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues(TaskDashboardSnapshot)))
}

func TestDashboardSnapshotJobNotConfigured(t *testing.T) {
	var job *DashboardSnapshotJob
	assert.Error(t, job.Handle(context.Background(), NewDashboardSnapshotTask()))
}

type fakeWarmer struct {
	filters []analytics.Filter
	err     error
}

func (f *fakeWarmer) Report(_ context.Context, filter analytics.Filter) (analytics.Report, error) {
	f.filters = append(f.filters, filter)
	return analytics.Report{Filter: filter}, f.err
}

func TestAnalyticsWarmupDefaultsToPageFilter(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewAnalyticsWarmupJob(warmer, discard, NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, nil)))
	require.Len(t, warmer.filters, 1)
	assert.Equal(t, analytics.DefaultFilter(), warmer.filters[0])
}

func TestAnalyticsWarmupEachFilter(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewAnalyticsWarmupJob(warmer, discard, NewMetrics(prometheus.NewRegistry()))
	weekly := analytics.Filter{Period: "weekly", Days: 90}
	monthly := analytics.Filter{Period: "monthly", Days: 365}

	task, err := NewAnalyticsWarmupTask(weekly, monthly)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []analytics.Filter{weekly, monthly}, warmer.filters)
}

func TestAnalyticsWarmupRejectsBadPayload(t *testing.T) {
	job := NewAnalyticsWarmupJob(&fakeWarmer{}, discard, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAnalyticsWarmupReportsFailure(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	job := NewAnalyticsWarmupJob(&fakeWarmer{err: errors.New("overview down")}, discard, metrics)
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues(TaskAnalyticsWarmup)))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthReportsQueueAndRecordsGauge(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1, Retry: 2}}, metrics, discard)
	r := chi.NewRouter()
	r.Route("/worker", h.MountRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/worker/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Pending)
	assert.Equal(t, 2, stats.Retry)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.queued.WithLabelValues(QueueDefault, "pending")))
}

func TestHealthUnavailable(t *testing.T) {
	h := NewHandler(fakeInspector{err: errors.New("redis down")}, nil, discard)
	r := chi.NewRouter()
	r.Route("/worker", h.MountRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/worker/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestServiceTokenReachesBackend(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	t.Cleanup(srv.Close)
	client := backend.NewClient(backend.Config{BaseURL: srv.URL})

	handler := WithServiceToken("svc-token")(asynq.HandlerFunc(func(ctx context.Context, _ *asynq.Task) error {
		return client.Get(ctx, "/admin/analytics/overview", nil, nil)
	}))
	require.NoError(t, handler.ProcessTask(context.Background(), NewDashboardSnapshotTask()))
	assert.Equal(t, "Bearer svc-token", auth)
}

func TestTrackerIsNilSafe(t *testing.T) {
	var metrics *Metrics
	err := errors.New("boom")
	assert.Equal(t, err, metrics.Track("x").End(err))
	metrics.SetQueueSize(QueueDefault, "pending", 1)
}
