package settings

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/contentforge/admin-console/internal/listing"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/view"
)

// Handler serves the system settings page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pages     *view.Pages
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Pages, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		pages:     pages,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers settings routes. The caller applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.update)
	r.Post("/email/test", h.testEmail)
}

type pageData struct {
	Settings  Settings
	Errors    map[string]string
	Tab       string
	Tabs      []string
	Providers []string
	TestEmail string
}

func tabOf(r *http.Request) string {
	tab := r.FormValue("tab")
	if !slices.Contains(Tabs, tab) {
		return Tabs[0]
	}
	return tab
}

func tabURL(tab string) string {
	return "/settings?tab=" + tab
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Get(r.Context())
	if err != nil {
		h.pages.Fail(w, r, "Settings", err)
		return
	}
	h.render(w, r, http.StatusOK, pageData{Settings: current, Tab: tabOf(r)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.Tabs = Tabs
	data.Providers = Providers
	h.pages.Shell(w, r, view.Page{
		Name:   "pages/settings.html",
		Title:  "System settings",
		Status: status,
		Data:   data,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.FailRedirect(w, r, "Save failed", &shared.ValidationError{Message: "Invalid form submission"}, tabURL(Tabs[0]))
		return
	}
	tab := tabOf(r)
	current, err := h.service.Get(r.Context())
	if err != nil {
		h.pages.FailRedirect(w, r, "Save failed", err, tabURL(tab))
		return
	}
	next := applyForm(r, current)
	if errs := h.validate(next); len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, pageData{Settings: next, Errors: errs, Tab: tab})
		return
	}
	err = h.service.Update(r.Context(), next)
	listing.Audit(r.Context(), h.audit, h.logger, "settings.update", "settings", nil, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Save failed", err, tabURL(tab))
		return
	}
	h.pages.SuccessRedirect(w, r, "Settings saved", "Settings saved successfully!", tabURL(tab))
}

// applyForm overlays the submitted fields on the current settings. An empty
// API key keeps the stored (masked) key.
func applyForm(r *http.Request, s Settings) Settings {
	text := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }
	checked := func(name string) bool { return r.PostFormValue(name) != "" }

	email := &s.EmailService
	email.Provider = text("email_provider")
	if key := text("resend_api_key"); key != "" {
		email.Resend.APIKey = key
	}
	email.Resend.FromEmail = text("resend_from_email")
	email.Resend.FromName = text("resend_from_name")
	email.Resend.ReplyToEmail = text("resend_reply_to")
	email.Enabled = checked("email_enabled")

	s.AIService.Provider = text("ai_provider")
	s.AIService.Model = text("ai_model")
	s.AIService.Timeout = formInt(r, "ai_timeout", s.AIService.Timeout)
	s.AIService.MaxAttempts = formInt(r, "ai_max_attempts", s.AIService.MaxAttempts)

	s.RateLimiting.Enabled = checked("rate_enabled")
	s.RateLimiting.RequestsPerHour = formInt(r, "rate_per_hour", s.RateLimiting.RequestsPerHour)
	s.RateLimiting.RequestsPerDay = formInt(r, "rate_per_day", s.RateLimiting.RequestsPerDay)

	s.Features = Features{
		ContentGroups: checked("feature_content_groups"),
		Templates:     checked("feature_templates"),
		Scheduling:    checked("feature_scheduling"),
		Analytics:     checked("feature_analytics"),
	}

	s.Maintenance.Enabled = checked("maintenance_enabled")
	s.Maintenance.Message = text("maintenance_message")
	s.Maintenance.ScheduledStart = text("maintenance_start")
	s.Maintenance.ScheduledEnd = text("maintenance_end")
	return s
}

func formInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func (h *Handler) validate(s Settings) map[string]string {
	errs := map[string]string{}
	var fieldErrs validator.ValidationErrors
	if errors.As(h.validator.Struct(s), &fieldErrs) {
		for _, fe := range fieldErrs {
			key := strings.TrimPrefix(fe.StructNamespace(), "Settings.")
			errs[key] = fieldMessage(fe)
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fe.Field() + " is required"
	case "email":
		return "Enter a valid email address"
	case "oneof":
		return "Choose one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte", "lte":
		if fe.Param() == "0" {
			return fe.Field() + " cannot be negative"
		}
		return fe.Field() + " is out of range"
	case "gtefield":
		return "Daily limit must be at least the hourly limit"
	case "max":
		return fe.Field() + " is too long"
	default:
		return fe.Error()
	}
}

func (h *Handler) testEmail(w http.ResponseWriter, r *http.Request) {
	back := tabURL("email")
	address := strings.TrimSpace(r.PostFormValue("test_email"))
	if address == "" {
		h.pages.FailRedirect(w, r, "Test email", &shared.ValidationError{Field: "test_email", Message: "Please enter an email address"}, back)
		return
	}
	if err := h.validator.Var(address, "email"); err != nil {
		h.pages.FailRedirect(w, r, "Test email", &shared.ValidationError{Field: "test_email", Message: "Enter a valid email address"}, back)
		return
	}
	current, err := h.service.Get(r.Context())
	if err != nil {
		h.pages.FailRedirect(w, r, "Test email failed", err, back)
		return
	}
	if !current.CanTestEmail() {
		h.pages.FailRedirect(w, r, "Test email", &shared.ValidationError{Field: "resend_api_key", Message: "Save a Resend API key before sending a test email"}, back)
		return
	}
	message, err := h.service.TestEmail(r.Context(), address)
	listing.Audit(r.Context(), h.audit, h.logger, "settings.email.test", "settings", nil, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Test email failed", err, back)
		return
	}
	h.pages.SuccessRedirect(w, r, "Test email sent", message, back)
}
