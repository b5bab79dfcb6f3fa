package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/analytics/export"
	analytichttp "github.com/contentforge/admin-console/internal/analytics/http"
	"github.com/contentforge/admin-console/internal/app"
	"github.com/contentforge/admin-console/internal/auth"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/content"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/diagnostics"
	consolejobs "github.com/contentforge/admin-console/internal/jobs"
	"github.com/contentforge/admin-console/internal/listing"
	"github.com/contentforge/admin-console/internal/observability"
	"github.com/contentforge/admin-console/internal/placeholder"
	"github.com/contentforge/admin-console/internal/platform/cache"
	"github.com/contentforge/admin-console/internal/platform/db"
	"github.com/contentforge/admin-console/internal/settings"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/users"
	"github.com/contentforge/admin-console/internal/view"
	"github.com/contentforge/admin-console/jobs"
	"github.com/contentforge/admin-console/report"
)

// sessionIdle is how long per-session toasts and list sequences outlive the
// session's last activity.
const sessionIdle = 2 * time.Hour

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

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

	var auditPool *pgxpool.Pool
	if cfg.AuditPGDSN != "" {
		auditPool, err = db.New(ctx, cfg.AuditPGDSN)
		if err != nil {
			logger.Warn("audit trail disabled", slog.Any("error", err))
		} else {
			defer auditPool.Close()
		}
	}
	auditLogger := shared.NewAuditLogger(auditPool)

	metrics := observability.NewMetrics()
	jobMetrics := jobs.NewMetrics(metrics.Registerer())

	client := backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendBaseURL,
		Timeout:       cfg.BackendTimeout,
		GrantWildcard: cfg.AuthGrantWildcard,
		Logger:        logger,
		Metrics:       metrics,
	})

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	registry := ui.NewRegistry()
	defer registry.Stop()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	pages := view.NewPages(templates, csrfManager, registry, logger, cfg.AppEnv)

	authHandler := auth.NewHandler(logger, client, pages, sessionManager, csrfManager, auditLogger)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(client, analyticsCache, logger)

	dashboardStore := dashboard.NewStore(redisClient, dashboard.NewSnapshot(cfg.DashboardRefreshInterval))
	dashboardService := dashboard.NewService(analyticsService, dashboardStore, logger)

	reportClient := report.NewClient(cfg.GotenbergURL)
	var pdfService analytichttp.PDFService
	if reportClient.Configured() {
		pdfService = export.NewPDFExporter(reportClient)
	} else {
		logger.Info("GOTENBERG_URL not set, PDF export disabled")
	}

	diagnosticsService := diagnostics.NewService(diagnostics.Deps{
		Backend:    client,
		BackendURL: client.BaseURL(),
		Redis:      redisClient,
		Renderer:   reportClient,
		Audit:      auditLogger,
		Dashboard:  dashboardStore,
	}, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	usersHandler := users.NewHandler(logger, users.NewService(client), pages, auditLogger)
	contentHandler := content.NewHandler(logger, content.NewService(client), pages, auditLogger)
	jobsHandler := consolejobs.NewHandler(logger, consolejobs.NewService(client), pages, auditLogger)
	go sweepIdle(ctx, logger, registry, usersHandler.Sequencer(), contentHandler.Sequencer(), jobsHandler.Sequencer())

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pages:              pages,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		UIHandler:          ui.NewHandler(logger, registry),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, pages),
		UsersHandler:       usersHandler,
		ContentHandler:     contentHandler,
		JobsHandler:        jobsHandler,
		AnalyticsHandler:   analytichttp.NewHandler(logger, analyticsService, pages, pdfService),
		SettingsHandler:    settings.NewHandler(logger, settings.NewService(client), pages, auditLogger),
		BillingHandler:     placeholder.NewHandler(pages, placeholder.Billing),
		SecurityHandler:    placeholder.NewHandler(pages, placeholder.Security),
		DiagnosticsHandler: diagnostics.NewHandler(logger, diagnosticsService, pages, sessionSnapshot),
		WorkerHandler:      jobs.NewHandler(inspector, jobMetrics, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", client.BaseURL()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// sessionSnapshot reads the caller from the hydrated session store.
func sessionSnapshot(ctx context.Context) diagnostics.Session {
	store := auth.StoreFromContext(ctx)
	if store == nil {
		return diagnostics.Session{}
	}
	snap := store.Snapshot()
	if !snap.IsAuthenticated {
		return diagnostics.Session{}
	}
	return diagnostics.Session{Identity: snap.User, ExpiresAt: snap.ExpiresAt}
}

// sweepIdle reclaims per-session state of operators who went away.
func sweepIdle(ctx context.Context, logger *slog.Logger, registry *ui.Registry, sequencers ...*listing.Sequencer[listing.State]) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-sessionIdle)
			if dropped := registry.Sweep(cutoff); dropped > 0 {
				logger.Debug("dropped idle notification stores", slog.Int("count", dropped))
			}
			for _, seq := range sequencers {
				if dropped := seq.Sweep(cutoff); dropped > 0 {
					logger.Debug("dropped idle list sequences", slog.Int("count", dropped))
				}
			}
		}
	}
}
