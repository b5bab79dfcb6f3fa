package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/users/{id}")
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `console_http_requests_total{code="418",route="/users/{id}"} 1`)
	assert.Contains(t, body, `console_http_request_duration_seconds_bucket{route="/users/{id}"`)
}

func TestObserveBackend(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveBackend(http.MethodGet, http.StatusOK, 20*time.Millisecond)
	metrics.ObserveBackend(http.MethodGet, http.StatusOK, 30*time.Millisecond)
	metrics.ObserveBackend(http.MethodPost, 0, time.Second)

	body := scrape(t, metrics)
	assert.Contains(t, body, `console_backend_requests_total{method="GET",status="200"} 2`)
	assert.Contains(t, body, `console_backend_requests_total{method="POST",status="0"} 1`)
	assert.True(t, strings.Contains(body, `console_backend_request_duration_seconds_count{method="GET"} 2`))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveBackend(http.MethodGet, http.StatusOK, time.Millisecond)
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
