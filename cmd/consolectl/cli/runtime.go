package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/app"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/diagnostics"
	"github.com/contentforge/admin-console/internal/platform/cache"
	"github.com/contentforge/admin-console/jobs"
	"github.com/contentforge/admin-console/report"
)

// EnvRuntime builds services from the console configuration.
type EnvRuntime struct {
	cfg    *app.Config
	logger *slog.Logger

	redis     *redis.Client
	client    *backend.Client
	jobs      *jobs.Client
	inspector *asynq.Inspector
}

// NewEnvRuntime loads configuration without connecting anywhere yet.
func NewEnvRuntime() (*EnvRuntime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &EnvRuntime{cfg: cfg, logger: app.NewLogger(cfg)}, nil
}

func (r *EnvRuntime) redisClient(ctx context.Context) (*redis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	client, err := cache.New(ctx, r.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	r.redis = client
	return client, nil
}

func (r *EnvRuntime) backend() *backend.Client {
	if r.client == nil {
		r.client = backend.NewClient(backend.Config{
			BaseURL:       r.cfg.BackendBaseURL,
			Timeout:       r.cfg.BackendTimeout,
			GrantWildcard: r.cfg.AuthGrantWildcard,
			Logger:        r.logger,
		})
	}
	return r.client
}

func (r *EnvRuntime) dashboardStore(ctx context.Context) (*dashboard.Store, *analytics.Service, error) {
	rdb, err := r.redisClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := analytics.NewService(r.backend(), analytics.NewCache(rdb, r.cfg.AnalyticsCacheTTL), r.logger)
	return dashboard.NewStore(rdb, dashboard.NewSnapshot(r.cfg.DashboardRefreshInterval)), svc, nil
}

// Queue implements Runtime.
func (r *EnvRuntime) Queue(context.Context) (Queue, error) {
	opts := asynq.RedisClientOpt{Addr: r.cfg.RedisAddr}
	if r.jobs == nil {
		r.jobs = jobs.NewClient(opts)
		r.inspector = asynq.NewInspector(opts)
	}
	return asynqQueue{client: r.jobs, inspector: r.inspector}, nil
}

// Dashboard implements Runtime. Refreshes authenticate with the
// service token.
func (r *EnvRuntime) Dashboard(ctx context.Context) (dashboard.Refresher, error) {
	store, svc, err := r.dashboardStore(ctx)
	if err != nil {
		return nil, err
	}
	return serviceRefresher{
		next:  dashboard.NewService(svc, store, r.logger),
		token: r.cfg.DashboardServiceToken,
	}, nil
}

// Diagnostics implements Runtime.
func (r *EnvRuntime) Diagnostics(ctx context.Context) (diagnostics.Runner, error) {
	store, _, err := r.dashboardStore(ctx)
	if err != nil {
		return nil, err
	}
	client := r.backend()
	return diagnostics.NewService(diagnostics.Deps{
		Backend:    client,
		BackendURL: client.BaseURL(),
		Redis:      r.redis,
		Renderer:   report.NewClient(r.cfg.GotenbergURL),
		Audit:      auditConfig(r.cfg.AuditPGDSN != ""),
		Dashboard:  store,
	}, r.logger), nil
}

// Close releases every connection opened so far.
func (r *EnvRuntime) Close() error {
	var errs []error
	if r.inspector != nil {
		errs = append(errs, r.inspector.Close())
	}
	if r.jobs != nil {
		errs = append(errs, r.jobs.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	return errors.Join(errs...)
}

type asynqQueue struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func (q asynqQueue) Stats(context.Context) (jobs.QueueStats, error) {
	return jobs.InspectQueue(q.inspector, nil, jobs.QueueDefault)
}

func (q asynqQueue) TriggerSnapshot(ctx context.Context) (*asynq.TaskInfo, error) {
	return q.client.EnqueueDashboardSnapshot(ctx)
}

func (q asynqQueue) TriggerWarmup(ctx context.Context, filter analytics.Filter) (*asynq.TaskInfo, error) {
	return q.client.EnqueueAnalyticsWarmup(ctx, jobs.AnalyticsWarmupPayload{Filters: []analytics.Filter{filter}})
}

type serviceRefresher struct {
	next  dashboard.Refresher
	token string
}

func (s serviceRefresher) Refresh(ctx context.Context) (dashboard.Snapshot, error) {
	if s.token != "" {
		ctx = backend.WithSession(ctx, backend.StaticToken(s.token))
	}
	return s.next.Refresh(ctx)
}

// auditConfig reports whether an audit DSN is set. The CLI never opens the
// audit pool.
type auditConfig bool

func (a auditConfig) Enabled() bool { return bool(a) }
