package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/admin-console/internal/platform/httpx"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/view"
)

// Handler serves the dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pages   *view.Pages
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Pages) *Handler {
	return &Handler{logger: logger, service: service, pages: pages}
}

// MountRoutes registers the dashboard routes at the root of r. The caller
// applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/dashboard", h.show)
	r.Get("/dashboard/stats.json", h.statsJSON)
	r.Post("/dashboard/refresh", h.refresh)
	r.Post("/dashboard/auto-refresh", h.autoRefresh)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Stats(r.Context())
	if errors.Is(err, shared.ErrSessionExpired) {
		h.pages.Fail(w, r, "Dashboard", err)
		return
	}
	page := view.Page{
		Name:  "pages/dashboard.html",
		Title: "Dashboard",
		Data:  snap,
	}
	if snap.Error != "" {
		page.Banner = snap.Error
	}
	h.pages.Shell(w, r, page)
}

type statsPayload struct {
	Stats             any       `json:"stats"`
	LastUpdated       time.Time `json:"lastUpdated"`
	Error             string    `json:"error,omitempty"`
	RefreshIntervalMS int64     `json:"refreshInterval"`
	AutoRefresh       bool      `json:"autoRefresh"`
}

func (h *Handler) statsJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Stats(r.Context())
	if err != nil && (errors.Is(err, shared.ErrSessionExpired) || !snap.Loaded()) {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, statsPayload{
		Stats:             snap.Stats,
		LastUpdated:       snap.LastUpdated,
		Error:             snap.Error,
		RefreshIntervalMS: snap.IntervalMillis(),
		AutoRefresh:       snap.AutoRefresh,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Refresh(r.Context()); err != nil {
		h.pages.FailRedirect(w, r, "Refresh failed", err, "/dashboard")
		return
	}
	h.pages.SuccessRedirect(w, r, "Dashboard refreshed", "Statistics are up to date.", "/dashboard")
}

func (h *Handler) autoRefresh(w http.ResponseWriter, r *http.Request) {
	on := r.PostFormValue("enabled") == "true"
	if _, err := h.service.SetAutoRefresh(r.Context(), on); err != nil {
		h.pages.FailRedirect(w, r, "Auto refresh", err, "/dashboard")
		return
	}
	h.logger.Info("dashboard auto refresh changed", slog.Bool("enabled", on))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
