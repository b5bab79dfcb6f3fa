package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// API is the subset of the backend client used here.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Service loads platform analytics from the backend.
type Service struct {
	api    API
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(api API, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: cache, logger: logger, now: time.Now}
}

// Overview fetches the platform summary. It is never cached here; the
// dashboard keeps its own snapshot.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	if err := s.api.Get(ctx, "/admin/analytics/overview", nil, &out); err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	return out, nil
}

// Series fetches one metric, served from the cache when possible.
func (s *Service) Series(ctx context.Context, metric Metric, filter Filter) ([]Point, error) {
	path, ok := metricPaths[metric]
	if !ok {
		return nil, fmt.Errorf("analytics: unknown metric %q", metric)
	}
	key, err := s.cache.BuildKey(ctx, "series", string(metric), filter.Key())
	if err != nil {
		s.logger.Warn("analytics cache version", slog.Any("error", err))
		key = ""
	}
	points, hit, err := fetchJSON(ctx, s.cache, key, func(ctx context.Context) ([]Point, error) {
		var points []Point
		if err := s.api.Get(ctx, path, filter.Query(), &points); err != nil {
			return nil, err
		}
		return points, nil
	})
	if err != nil {
		return nil, fmt.Errorf("analytics %s: %w", metric, err)
	}
	s.logger.Debug("analytics series", slog.String("metric", string(metric)), slog.String("filter", filter.Key()), slog.Bool("cached", hit))
	return points, nil
}

// Report loads the overview and every series concurrently. The overview is
// required; a failing series is recorded on the series and the rest still
// render.
func (s *Service) Report(ctx context.Context, filter Filter) (Report, error) {
	report := Report{Filter: filter, Series: make([]Series, len(Metrics)), GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := s.Overview(gctx)
		report.Overview = overview
		return err
	})
	for i, metric := range Metrics {
		g.Go(func() error {
			points, err := s.Series(gctx, metric, filter)
			report.Series[i] = Series{Metric: metric, Points: points, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return report, nil
}

// Invalidate drops every cached series.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
