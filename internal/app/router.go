package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/contentforge/admin-console/internal/analytics/http"
	"github.com/contentforge/admin-console/internal/auth"
	"github.com/contentforge/admin-console/internal/content"
	"github.com/contentforge/admin-console/internal/dashboard"
	"github.com/contentforge/admin-console/internal/diagnostics"
	consolejobs "github.com/contentforge/admin-console/internal/jobs"
	"github.com/contentforge/admin-console/internal/observability"
	"github.com/contentforge/admin-console/internal/placeholder"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/settings"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/users"
	"github.com/contentforge/admin-console/internal/view"
	"github.com/contentforge/admin-console/jobs"
	"github.com/contentforge/admin-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Pages          *view.Pages
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UIHandler          *ui.Handler
	DashboardHandler   *dashboard.Handler
	UsersHandler       *users.Handler
	ContentHandler     *content.Handler
	JobsHandler        *consolejobs.Handler
	AnalyticsHandler   *analytichttp.Handler
	SettingsHandler    *settings.Handler
	BillingHandler     *placeholder.Handler
	SecurityHandler    *placeholder.Handler
	DiagnosticsHandler *diagnostics.Handler
	WorkerHandler      *jobs.Handler
}

type section struct {
	path  string
	mount func(chi.Router)
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		Fallback:       params.Pages.Fallback,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	sessions := params.AuthHandler.Sessions()
	guard := rbac.Guard{
		Principal: sessions.Principal,
		Denied:    params.Pages.Denied,
		LoginPath: "/login",
		Logger:    params.Logger,
	}

	// Public pages still show who is signed in.
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		params.AuthHandler.MountRoutes(r)
		if params.UIHandler != nil {
			params.UIHandler.MountRoutes(r)
		}
		if params.DiagnosticsHandler != nil {
			params.DiagnosticsHandler.MountRoutes(r)
		}
	})
	if params.WorkerHandler != nil {
		r.Route("/worker", params.WorkerHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(guard.Require())
		params.DashboardHandler.MountRoutes(r)
	})

	sections := []section{
		{"/users", params.UsersHandler.MountRoutes},
		{"/content", params.ContentHandler.MountRoutes},
		{"/jobs", params.JobsHandler.MountRoutes},
		{"/analytics", params.AnalyticsHandler.MountRoutes},
		{"/billing", params.BillingHandler.MountRoutes},
		{"/security", params.SecurityHandler.MountRoutes},
		{"/settings", params.SettingsHandler.MountRoutes},
	}
	for _, s := range sections {
		r.Route(s.path, func(r chi.Router) {
			r.Use(guard.Require(rbac.RoutePermissions(s.path)...))
			s.mount(r)
		})
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
