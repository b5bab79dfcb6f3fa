package diagnostics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/admin-console/internal/platform/httpx"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/view"
)

// SessionReader describes the caller without gating the request.
type SessionReader func(ctx context.Context) Session

// Runner runs a diagnostics pass.
type Runner interface {
	Run(ctx context.Context, sess Session) Report
}

// Handler serves the diagnostics pages.
type Handler struct {
	logger  *slog.Logger
	runner  Runner
	pages   *view.Pages
	session SessionReader
}

// NewHandler constructs a Handler. A nil session reader falls back to the
// identity bound to the request.
func NewHandler(logger *slog.Logger, runner Runner, pages *view.Pages, session SessionReader) *Handler {
	if session == nil {
		session = func(ctx context.Context) Session {
			return Session{Identity: rbac.IdentityFromContext(ctx)}
		}
	}
	return &Handler{logger: logger, runner: runner, pages: pages, session: session}
}

// MountRoutes registers the public diagnostics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/debug", h.show)
	r.Get("/diagnostics", h.show)
	r.Get("/diagnostics.json", h.showJSON)
	r.Get("/setup", h.show)
}

type pageData struct {
	Report
	Setup bool
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	report := h.runner.Run(r.Context(), h.session(r.Context()))
	title := "Diagnostics"
	setup := r.URL.Path == "/setup"
	if setup {
		title = "Setup verification"
	}
	h.pages.Public(w, r, view.Page{
		Name:  "pages/diagnostics.html",
		Title: title,
		Data:  pageData{Report: report, Setup: setup},
	})
}

func (h *Handler) showJSON(w http.ResponseWriter, r *http.Request) {
	report := h.runner.Run(r.Context(), h.session(r.Context()))
	status := http.StatusOK
	if report.Overall() == StatusError {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, status, struct {
		Overall Status `json:"overall"`
		Report
	}{Overall: report.Overall(), Report: report})
}
