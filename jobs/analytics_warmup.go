package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/contentforge/admin-console/internal/analytics"
)

// Warmer loads an analytics report through the cache.
type Warmer interface {
	Report(ctx context.Context, filter analytics.Filter) (analytics.Report, error)
}

// AnalyticsWarmupJob preloads the analytics cache so the first operator to
// open the page after a deploy does not wait on every series.
type AnalyticsWarmupJob struct {
	Analytics Warmer
	Logger    *slog.Logger
	Metrics   *Metrics
	Timeout   time.Duration
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(warmer Warmer, logger *slog.Logger, metrics *Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: warmer,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   20 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskAnalyticsWarmup.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if len(payload.Filters) == 0 {
		payload.Filters = []analytics.Filter{analytics.DefaultFilter()}
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	logger := j.logger()
	start := j.now()
	for _, filter := range payload.Filters {
		if err := j.warm(ctx, filter); err != nil {
			logger.Error("warm analytics", slog.String("filter", filter.Key()), slog.Any("error", err))
			return tracker.End(err)
		}
	}
	logger.Info("completed analytics warmup",
		slog.Int("filters", len(payload.Filters)),
		slog.Duration("duration", j.now().Sub(start)))
	return tracker.End(nil)
}

func (j *AnalyticsWarmupJob) warm(ctx context.Context, filter analytics.Filter) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	report, err := j.Analytics.Report(ctx, filter)
	if err != nil {
		return err
	}
	for _, s := range report.Series {
		if s.Err != nil {
			j.logger().Warn("series not warmed", slog.String("metric", string(s.Metric)), slog.Any("error", s.Err))
		}
	}
	return nil
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
