// Package consoletest builds the page stack handlers render through, backed
// by an in-memory Redis.
package consoletest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/view"
)

// Harness is a page stack with sessions in miniredis.
type Harness struct {
	Logger   *slog.Logger
	Redis    *redis.Client
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	Registry *ui.Registry
	Pages    *view.Pages
	Audit    *shared.AuditLogger
	Identity *rbac.Identity

	// SessionID is the session of the last request served by Router.
	SessionID string
	// Sticky makes Router resume the last session instead of starting a
	// new one per request, like a browser holding the cookie.
	Sticky bool
}

const sessionCookie = "test_session"

// New builds a harness signed in as an admin.
func New(t *testing.T) *Harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	engine, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	csrf := shared.NewCSRFManager("csrfsecret")
	registry := ui.NewRegistry()
	t.Cleanup(registry.Stop)
	return &Harness{
		Logger:   logger,
		Redis:    client,
		Sessions: shared.NewSessionManager(client, sessionCookie, "secret", time.Hour, false),
		CSRF:     csrf,
		Registry: registry,
		Pages:    view.NewPages(engine, csrf, registry, logger, "test"),
		Audit:    shared.NewAuditLogger(nil),
		Identity: &rbac.Identity{ID: "op-1", Email: "ops@example.com", DisplayName: "Ops", Role: rbac.RoleAdmin, Permissions: []string{rbac.Wildcard}},
	}
}

// Router mounts routes under prefix with the session and identity attached.
func (h *Harness) Router(prefix string, mount func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if h.Sticky && h.SessionID != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookie, Value: h.SessionID})
			}
			sess, err := h.Sessions.Load(req.Context(), req)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			h.SessionID = sess.ID
			ctx := shared.ContextWithSession(req.Context(), sess)
			if h.Identity != nil {
				ctx = rbac.WithIdentity(ctx, h.Identity)
			}
			req = req.WithContext(ctx)
			next.ServeHTTP(w, req)
			if h.Sticky {
				_ = h.Sessions.Commit(ctx, w, req, sess)
				h.SessionID = sess.ID
			}
		})
	})
	r.Route(prefix, mount)
	return r
}

// Notifications lists the toasts of the last served session.
func (h *Harness) Notifications() []ui.Notification {
	return h.Registry.For(h.SessionID).List()
}

// Do serves one request.
func Do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

// Get builds a GET request.
func Get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

// PostForm builds a form POST.
func PostForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Call is one request seen by a fake backend.
type Call struct {
	Method  string
	Path    string
	Query   url.Values
	Payload any
}

// API is a scripted backend recording every call. Responses are keyed by
// "METHOD path".
type API struct {
	mu        sync.Mutex
	Calls     []Call
	Responses map[string]func(out any) error
}

// NewAPI returns an empty fake backend.
func NewAPI() *API {
	return &API{Responses: map[string]func(out any) error{}}
}

// On scripts the response of one endpoint.
func (a *API) On(method, path string, respond func(out any) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Responses[method+" "+path] = respond
}

func (a *API) call(method, path string, query url.Values, payload, out any) error {
	a.mu.Lock()
	a.Calls = append(a.Calls, Call{Method: method, Path: path, Query: query, Payload: payload})
	respond, ok := a.Responses[method+" "+path]
	a.mu.Unlock()
	if ok {
		return respond(out)
	}
	return nil
}

// Get implements the service API.
func (a *API) Get(_ context.Context, path string, query url.Values, out any) error {
	return a.call(http.MethodGet, path, query, nil, out)
}

// Post implements the service API.
func (a *API) Post(_ context.Context, path string, payload, out any) error {
	return a.call(http.MethodPost, path, nil, payload, out)
}

// Put implements the service API.
func (a *API) Put(_ context.Context, path string, payload, out any) error {
	return a.call(http.MethodPut, path, nil, payload, out)
}

// Patch implements the service API.
func (a *API) Patch(_ context.Context, path string, payload, out any) error {
	return a.call(http.MethodPatch, path, nil, payload, out)
}

// Delete implements the service API.
func (a *API) Delete(_ context.Context, path string, payload, out any) error {
	return a.call(http.MethodDelete, path, nil, payload, out)
}

// JSON responds by decoding body into out.
func JSON(body string) func(out any) error {
	return func(out any) error {
		if out == nil {
			return nil
		}
		return json.Unmarshal([]byte(body), out)
	}
}

// Fail responds with err.
func Fail(err error) func(out any) error {
	return func(any) error { return err }
}

// Mutations returns the non-GET calls.
func (a *API) Mutations() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Call
	for _, c := range a.Calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}
