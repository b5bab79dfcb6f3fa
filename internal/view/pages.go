package view

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
)

type expiryKey struct{}

// WithSessionExpiry records when the operator token expires, for the header.
func WithSessionExpiry(ctx context.Context, at time.Time) context.Context {
	return context.WithValue(ctx, expiryKey{}, at)
}

func sessionExpiry(ctx context.Context) time.Time {
	at, _ := ctx.Value(expiryKey{}).(time.Time)
	return at
}

// Page describes one render.
type Page struct {
	Name   string
	Title  string
	Status int
	Banner string
	Data   any
}

// Pages renders pages inside the console shell and owns the shared error
// paths of every handler.
type Pages struct {
	engine        *Engine
	csrf          *shared.CSRFManager
	notifications *ui.Registry
	logger        *slog.Logger
	environment   string
	loginPath     string
}

// NewPages constructs the page helper.
func NewPages(engine *Engine, csrf *shared.CSRFManager, notifications *ui.Registry, logger *slog.Logger, environment string) *Pages {
	return &Pages{
		engine:        engine,
		csrf:          csrf,
		notifications: notifications,
		logger:        logger,
		environment:   environment,
		loginPath:     "/login",
	}
}

// Notifications exposes the registry the pages read from.
func (p *Pages) Notifications() *ui.Registry {
	return p.notifications
}

// Notify adds a toast for the request's operator session.
func (p *Pages) Notify(r *http.Request, kind ui.Kind, title, message string) {
	p.notifications.For(shared.SessionID(r.Context())).Add(ui.Draft{Kind: kind, Title: title, Message: message})
}

// Shell renders the page inside the sidebar and header.
func (p *Pages) Shell(w http.ResponseWriter, r *http.Request, page Page) {
	data := p.baseData(r, page)
	identity := rbac.IdentityFromContext(r.Context())
	store := p.notifications.For(shared.SessionID(r.Context()))
	data.Shell = &Shell{
		Identity:         identity,
		Nav:              rbac.Navigation(identity, r.URL.Path),
		Prefs:            ui.LoadPrefs(shared.SessionFromContext(r.Context())),
		Unread:           store.Unread(),
		SessionExpiresAt: sessionExpiry(r.Context()),
		Environment:      p.environment,
	}
	p.render(w, page, data)
}

// Public renders a page without the shell.
func (p *Pages) Public(w http.ResponseWriter, r *http.Request, page Page) {
	p.render(w, page, p.baseData(r, page))
}

// Denied renders the access denied placeholder in the shell. The URL stays
// unchanged.
func (p *Pages) Denied(w http.ResponseWriter, r *http.Request, required []string) {
	p.Shell(w, r, Page{
		Name:   "pages/denied.html",
		Title:  "Access denied",
		Status: http.StatusForbidden,
		Data:   struct{ Required []string }{Required: required},
	})
}

// Fail handles a failed page load. An expired session is the only error that
// navigates; everything else renders an error state with a message.
func (p *Pages) Fail(w http.ResponseWriter, r *http.Request, title string, err error) {
	if p.expired(w, r, err) {
		return
	}
	status := http.StatusBadGateway
	switch remote := shared.RemoteStatus(err); {
	case errors.Is(err, shared.ErrNotFound), remote == http.StatusNotFound:
		status = http.StatusNotFound
	case remote == http.StatusForbidden:
		status = http.StatusForbidden
	}
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		status = http.StatusBadRequest
	}
	p.logger.Warn("page load failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	p.Shell(w, r, Page{
		Name:   "pages/error.html",
		Title:  title,
		Status: status,
		Banner: shared.UserSafeMessage(err),
	})
}

// FailRedirect reports a failed mutation and returns to back, which keeps the
// list filters and selection.
func (p *Pages) FailRedirect(w http.ResponseWriter, r *http.Request, title string, err error, back string) {
	if p.expired(w, r, err) {
		return
	}
	p.logger.Warn("action failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	p.Notify(r, ui.KindError, title, shared.UserSafeMessage(err))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// SuccessRedirect reports a completed mutation and redirects, so the target
// page is fetched again.
func (p *Pages) SuccessRedirect(w http.ResponseWriter, r *http.Request, title, message, back string) {
	p.Notify(r, ui.KindSuccess, title, message)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Fallback is the last resort page for a handler that panicked.
func (p *Pages) Fallback(w http.ResponseWriter, r *http.Request) {
	data := p.baseData(r, Page{Title: "Something went wrong"})
	if err := p.engine.RenderStatus(w, http.StatusInternalServerError, "pages/fallback.html", data); err != nil {
		p.logger.Error("render fallback", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (p *Pages) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, shared.ErrSessionExpired) {
		return false
	}
	p.Notify(r, ui.KindWarning, "Session expired", shared.UserSafeMessage(err))
	if isJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"session expired","redirect":"` + p.loginPath + `"}`))
		return true
	}
	http.Redirect(w, r, p.loginPath, http.StatusSeeOther)
	return true
}

func (p *Pages) baseData(r *http.Request, page Page) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	token, err := p.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		p.logger.Warn("csrf token", slog.Any("error", err))
	}
	return TemplateData{
		Title:         page.Title,
		CSRFToken:     token,
		CurrentPath:   r.URL.RequestURI(),
		Notifications: p.notifications.For(shared.SessionID(r.Context())).List(),
		Banner:        page.Banner,
		Data:          page.Data,
	}
}

func (p *Pages) render(w http.ResponseWriter, page Page, data TemplateData) {
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	if err := p.engine.RenderStatus(w, status, page.Name, data); err != nil {
		p.logger.Error("render page", slog.String("template", page.Name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func isJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") || strings.HasSuffix(r.URL.Path, ".json")
}
