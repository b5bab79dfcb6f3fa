package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/app"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/platform/cache"
	"github.com/contentforge/admin-console/jobs"
)

// warmupCron primes the analytics cache once an hour.
const warmupCron = "5 * * * *"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With("component", "worker")
	if cfg.DashboardServiceToken == "" {
		logger.Warn("DASHBOARD_SERVICE_TOKEN not set, admin endpoints will reject worker calls")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	client := backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendBaseURL,
		Timeout:       cfg.BackendTimeout,
		GrantWildcard: cfg.AuthGrantWildcard,
		Logger:        logger,
	})

	metrics := jobs.NewMetrics(nil)

	analyticsService := analytics.NewService(client, analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL), logger)
	dashboardStore := dashboard.NewStore(redisClient, dashboard.NewSnapshot(cfg.DashboardRefreshInterval))
	dashboardService := dashboard.NewService(analyticsService, dashboardStore, logger)

	snapshotJob := jobs.NewDashboardSnapshotJob(dashboardService, logger, metrics)
	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, logger, metrics)

	warmupTask, err := jobs.NewAnalyticsWarmupTask(analytics.DefaultFilter())
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Middleware: []asynq.MiddlewareFunc{
			jobs.LogTasks(logger),
			jobs.WithServiceToken(cfg.DashboardServiceToken),
		},
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardSnapshot, Handler: snapshotJob.Handle},
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.DashboardSnapshotCron, Task: jobs.NewDashboardSnapshotTask(), Options: []asynq.Option{asynq.MaxRetry(0)}},
			{Spec: warmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("backend", client.BaseURL()), slog.String("snapshot_cron", jobs.DashboardSnapshotCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
