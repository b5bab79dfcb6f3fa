// Package placeholder serves sections whose backend is not built yet.
package placeholder

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/admin-console/internal/view"
)

// Section is one placeholder page.
type Section struct {
	Title    string
	Subtitle string
	Heading  string
	Intro    string
	Features []string
}

// Billing is the billing and subscriptions section.
var Billing = Section{
	Title:    "Billing & Subscriptions",
	Subtitle: "Manage subscriptions, payments, and financial analytics",
	Heading:  "Billing Management",
	Intro:    "This section will handle all financial operations including:",
	Features: []string{
		"Subscription management",
		"Payment processing",
		"Revenue analytics",
		"Refund processing",
		"Usage limits and overages",
		"Financial reporting",
	},
}

// Security is the security and monitoring section.
var Security = Section{
	Title:    "Security & Monitoring",
	Subtitle: "Monitor security events and manage access controls",
	Heading:  "Security Management",
	Intro:    "This section will provide security oversight including:",
	Features: []string{
		"Security event monitoring",
		"Failed login attempts",
		"Rate limiting violations",
		"Suspicious activity detection",
		"Audit logs",
		"IP blocking and access controls",
	},
}

// Handler renders one section.
type Handler struct {
	pages   *view.Pages
	section Section
}

// NewHandler constructs a Handler.
func NewHandler(pages *view.Pages, section Section) *Handler {
	return &Handler{pages: pages, section: section}
}

// MountRoutes registers the section index. The caller applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	h.pages.Shell(w, r, view.Page{
		Name:  "pages/placeholder.html",
		Title: h.section.Title,
		Data:  h.section,
	})
}
