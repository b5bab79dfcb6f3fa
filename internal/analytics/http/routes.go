package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/contentforge/admin-console/internal/shared"
)

// MountRoutes registers the analytics page and its exports. The caller
// applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handlePage)
	r.Post("/refresh", h.handleRefresh)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export.pdf", h.handlePDF)
		gr.Get("/export.csv", h.handleCSV)
	})
}

// Exports are limited per operator session, falling back to the client IP.
func rateLimitKey(r *http.Request) (string, error) {
	if id := shared.SessionID(r.Context()); id != "" {
		return "session:" + id, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
