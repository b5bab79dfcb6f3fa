package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	sessions       Sessions
	pages          *view.Pages
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	audit          *shared.AuditLogger
	validator      *validator.Validate
	loginLimit     int
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, api Authenticator, pages *view.Pages, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:         logger,
		sessions:       Sessions{API: api, Logger: logger},
		pages:          pages,
		sessionManager: sessions,
		csrfManager:    csrf,
		audit:          audit,
		validator:      newValidator(),
		loginLimit:     10,
	}
}

// mailboxPattern is the browser's type=email grammar. The backend owns the
// stricter checks.
var mailboxPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return mailboxPattern.MatchString(fl.Field().String())
	})
	return v
}

// Sessions exposes the hydration step for the route guard.
func (h *Handler) Sessions() Sessions {
	return h.sessions
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/session/refresh", h.handleRefresh)
}

type loginForm struct {
	Email          string `validate:"required,mailbox"`
	Password       string `validate:"required"`
	TwoFactorToken string `validate:"omitempty,numeric,len=6"`
}

type loginPageData struct {
	Form              loginForm
	Errors            map[string]string
	RequiresTwoFactor bool
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	principal, r := h.sessions.Principal(r)
	if principal.Authenticated {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{}, "")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	store := NewStore(sess, h.sessions.API, h.logger)

	form := loginForm{
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Password:       r.PostFormValue("password"),
		TwoFactorToken: strings.TrimSpace(r.PostFormValue("two_factor_token")),
	}
	data := loginPageData{Form: form, Errors: make(map[string]string), RequiresTwoFactor: form.TwoFactorToken != ""}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				data.Errors[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
		data.Form.Password = ""
		h.renderLogin(w, r, http.StatusBadRequest, data, "")
		return
	}

	err := store.Login(r.Context(), backend.Credentials{
		Email:          form.Email,
		Password:       form.Password,
		TwoFactorToken: form.TwoFactorToken,
	})
	h.recordLogin(r, form.Email, err)
	data.Form.Password = ""
	if err != nil {
		var authErr *shared.AuthError
		if errors.As(err, &authErr) && authErr.RequiresTwoFactor {
			data.RequiresTwoFactor = true
			h.pages.Notify(r, ui.KindInfo, "2FA Required", "Please enter your two-factor authentication code")
			h.renderLogin(w, r, http.StatusOK, data, "")
			return
		}
		snap := store.Snapshot()
		h.pages.Notify(r, ui.KindError, "Login Failed", snap.Error)
		h.renderLogin(w, r, http.StatusUnauthorized, data, snap.Error)
		return
	}

	previous := sess.ID
	h.sessionManager.Renew(sess)
	h.pages.Notifications().Move(previous, sess.ID)
	h.csrfManager.Rotate(sess)
	h.pages.Notify(r, ui.KindSuccess, "Welcome back", "Signed in as "+store.Identity().Name())
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	store := NewStore(sess, h.sessions.API, h.logger)
	store.Hydrate()
	identity := store.Identity()
	store.Logout(r.Context())
	if identity != nil {
		h.record(r, shared.AuditEntry{ActorID: identity.ID, ActorEmail: identity.Email, Action: "logout", Entity: "session", Succeeded: true})
	}
	if sess != nil {
		h.pages.Notifications().Drop(sess.ID)
		h.sessionManager.Renew(sess)
		h.csrfManager.Rotate(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	store := NewStore(sess, h.sessions.API, h.logger)
	if !store.Hydrate().IsAuthenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := store.RefreshToken(r.Context()); err != nil {
		h.pages.Notify(r, ui.KindError, "Session expired", "Please sign in again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.pages.Notify(r, ui.KindSuccess, "Session extended", "")
	http.Redirect(w, r, returnPath(r.PostFormValue("return_to")), http.StatusSeeOther)
}

// returnPath keeps redirects on this host.
func returnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/dashboard"
	}
	return p
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData, banner string) {
	h.pages.Public(w, r, view.Page{
		Name:   "pages/login.html",
		Title:  "Sign in",
		Status: status,
		Banner: banner,
		Data:   data,
	})
}

func (h *Handler) recordLogin(r *http.Request, email string, err error) {
	entry := shared.AuditEntry{ActorEmail: email, Action: "login", Entity: "session", Succeeded: err == nil}
	if err != nil {
		entry.Meta = map[string]any{"reason": shared.UserSafeMessage(err)}
	}
	h.record(r, entry)
}

func (h *Handler) record(r *http.Request, entry shared.AuditEntry) {
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit login", slog.Any("error", err))
	}
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "mailbox":
		return "Enter a valid email address"
	case "numeric", "len":
		return "Enter the 6 digit code"
	default:
		return fieldErr.Error()
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRefreshForTest exposes the session refresh handler for tests.
func (h *Handler) HandleRefreshForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRefresh(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
