package ui

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/admin-console/internal/platform/httpx"
	"github.com/contentforge/admin-console/internal/shared"
)

// Handler serves the shell interactions.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// MountRoutes registers the shell endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ui", func(r chi.Router) {
		r.Post("/sidebar", h.toggleSidebar)
		r.Post("/theme", h.setTheme)
		r.Get("/notifications", h.listNotifications)
		r.Post("/notifications/clear", h.clearNotifications)
		r.Post("/notifications/{id}/read", h.markRead)
		r.Post("/notifications/{id}/dismiss", h.dismiss)
	})
}

func (h *Handler) toggleSidebar(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ToggleSidebar(sess)
	redirectBack(w, r)
}

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	choice, err := ParseTheme(r.PostFormValue("theme"))
	if err != nil {
		h.registry.For(sess.ID).Add(Draft{Kind: KindError, Title: "Theme", Message: shared.UserSafeMessage(err)})
		redirectBack(w, r)
		return
	}
	resolved := SetTheme(sess, choice, r)
	h.logger.Debug("theme changed", slog.String("choice", string(choice)), slog.String("resolved", string(resolved)))
	redirectBack(w, r)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	store := h.registry.For(shared.SessionID(r.Context()))
	w.Header().Set("Cache-Control", "no-store")
	payload := struct {
		Unread        int            `json:"unread"`
		Notifications []Notification `json:"notifications"`
	}{Unread: store.Unread(), Notifications: store.List()}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	h.registry.For(shared.SessionID(r.Context())).Clear()
	redirectBack(w, r)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.registry.For(shared.SessionID(r.Context())).MarkRead(chi.URLParam(r, "id"))
	redirectBack(w, r)
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	h.registry.For(shared.SessionID(r.Context())).Remove(chi.URLParam(r, "id"))
	redirectBack(w, r)
}

// redirectBack returns to the local page named by the form or the referer.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, BackURL(r, "/dashboard"), http.StatusSeeOther)
}

// BackURL returns a same-site path to return to after a POST.
func BackURL(r *http.Request, fallback string) string {
	candidates := []string{r.PostFormValue("back"), r.Referer()}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		if u.Host != "" && u.Host != r.Host {
			continue
		}
		if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
			continue
		}
		if u.RawQuery != "" {
			return u.Path + "?" + u.RawQuery
		}
		return u.Path
	}
	return fallback
}
