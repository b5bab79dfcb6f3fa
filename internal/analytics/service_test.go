package analytics_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/testing/consoletest"
)

const overviewBody = `{"totalUsers": 1247, "activeUsers": 892, "cpuUsage": 45, "memoryUsage": 67, "diskUsage": 34, "aiTokensUsed": 8230000}`

const growthBody = `[{"date": "2024-01-01", "value": 400}, {"date": "2024-01-02", "value": 300}]`

func newCache(t *testing.T) *analytics.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return analytics.NewCache(client, 0)
}

func countCalls(api *consoletest.API, path string) int {
	n := 0
	for _, c := range api.Calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

func TestSeriesIsCachedUntilInvalidated(t *testing.T) {
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/analytics/users/growth", consoletest.JSON(growthBody))
	svc := analytics.NewService(api, newCache(t), nil)
	ctx := context.Background()

	points, err := svc.Series(ctx, analytics.MetricUsers, analytics.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "daily", api.Calls[0].Query.Get("period"))
	assert.Equal(t, "30", api.Calls[0].Query.Get("days"))

	again, err := svc.Series(ctx, analytics.MetricUsers, analytics.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, points, again)
	assert.Equal(t, 1, countCalls(api, "/admin/analytics/users/growth"))

	_, err = svc.Series(ctx, analytics.MetricUsers, analytics.Filter{Period: "weekly", Days: 90})
	require.NoError(t, err)
	assert.Equal(t, 2, countCalls(api, "/admin/analytics/users/growth"))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Series(ctx, analytics.MetricUsers, analytics.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, 3, countCalls(api, "/admin/analytics/users/growth"))
}

func TestSeriesWithoutCacheAlwaysFetches(t *testing.T) {
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/analytics/ai/tokens", consoletest.JSON(growthBody))
	svc := analytics.NewService(api, nil, nil)
	for i := 0; i < 2; i++ {
		_, err := svc.Series(context.Background(), analytics.MetricTokens, analytics.DefaultFilter())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, countCalls(api, "/admin/analytics/ai/tokens"))
}

func TestUnknownMetric(t *testing.T) {
	_, err := analytics.NewService(consoletest.NewAPI(), nil, nil).Series(context.Background(), "churn", analytics.DefaultFilter())
	assert.Error(t, err)
}

func TestReportToleratesSeriesFailure(t *testing.T) {
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/analytics/overview", consoletest.JSON(overviewBody))
	api.On(http.MethodGet, "/admin/analytics/users/growth", consoletest.JSON(growthBody))
	api.On(http.MethodGet, "/admin/analytics/revenue/growth", consoletest.Fail(errors.New("boom")))

	rep, err := analytics.NewService(api, nil, nil).Report(context.Background(), analytics.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1247), rep.Overview.TotalUsers)
	require.Len(t, rep.Series, len(analytics.Metrics))

	users, ok := rep.SeriesFor(analytics.MetricUsers)
	require.True(t, ok)
	assert.Equal(t, 700.0, users.Total())
	revenue, _ := rep.SeriesFor(analytics.MetricRevenue)
	assert.Error(t, revenue.Err)
	tokens, _ := rep.SeriesFor(analytics.MetricTokens)
	assert.NoError(t, tokens.Err)
	assert.Empty(t, tokens.Points)
}

func TestReportFailsWithoutOverview(t *testing.T) {
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/analytics/overview", consoletest.Fail(errors.New("down")))
	_, err := analytics.NewService(api, nil, nil).Report(context.Background(), analytics.DefaultFilter())
	assert.Error(t, err)
}

func TestOverviewHealth(t *testing.T) {
	assert.Equal(t, analytics.HealthExcellent, analytics.Overview{CPUUsage: 45, MemoryUsage: 67, DiskUsage: 34}.Health())
	assert.Equal(t, analytics.HealthGood, analytics.Overview{CPUUsage: 70, MemoryUsage: 70, DiskUsage: 70}.Health())
	assert.Equal(t, analytics.HealthWarning, analytics.Overview{CPUUsage: 90, MemoryUsage: 80, DiskUsage: 75}.Health())
	assert.InDelta(t, 71.53, analytics.Overview{TotalUsers: 1247, ActiveUsers: 892}.ActiveShare(), 0.01)
	assert.Zero(t, analytics.Overview{}.ActiveShare())
}

func TestParseFilter(t *testing.T) {
	f := analytics.ParseFilter(map[string][]string{"period": {"weekly"}, "days": {"90"}})
	assert.Equal(t, analytics.Filter{Period: "weekly", Days: 90}, f)
	assert.Equal(t, analytics.DefaultFilter(), analytics.ParseFilter(map[string][]string{"period": {"hourly"}, "days": {"12"}}))
	assert.Equal(t, "weekly-90d", f.Key())
}
