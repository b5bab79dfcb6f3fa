package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/contentforge/admin-console/internal/auth"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/view"
	_ "github.com/contentforge/admin-console/testing"
)

type stubAPI struct {
	result     *backend.LoginResult
	err        error
	refreshed  string
	refreshErr error
}

func (s *stubAPI) Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResult, error) {
	return s.result, s.err
}

func (s *stubAPI) Logout(ctx context.Context) error { return nil }

func (s *stubAPI) Refresh(ctx context.Context) (string, error) { return s.refreshed, s.refreshErr }

type harness struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	registry *ui.Registry
}

func newAuthHandler(t *testing.T, api auth.Authenticator) harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := ui.NewRegistry()
	t.Cleanup(registry.Stop)
	pages := view.NewPages(templates, csrfManager, registry, logger, "test")
	handler := auth.NewHandler(logger, api, pages, sessionManager, csrfManager, shared.NewAuditLogger(nil))
	return harness{handler: handler, sessions: sessionManager, registry: registry}
}

func (h harness) serve(t *testing.T, fn http.HandlerFunc, req *http.Request, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	fn(res, req)
	if err := h.sessions.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res
}

func postLogin(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{})
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := h.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	res := h.serve(t, h.handler.ShowLoginForTest, req, sess)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
	if sess.Get(shared.CSRFSessionKey) == "" {
		t.Fatalf("csrf token not set")
	}
}

func TestLoginPageRedirectsSignedInOperator(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{})
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, _ := h.sessions.Load(context.Background(), req)
	if err := auth.NewGateway(sess).Write("t1", rbac.Identity{ID: "1", Email: "a@b.com"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := h.serve(t, h.handler.ShowLoginForTest, req, sess)
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", res.Code, res.Header().Get("Location"))
	}
}

func TestLoginValidation(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{})
	req := postLogin(url.Values{"email": {"not-an-email"}, "password": {""}})
	sess, _ := h.sessions.Load(context.Background(), req)
	res := h.serve(t, h.handler.HandleLoginForTest, req, sess)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Enter a valid email address") {
		t.Fatalf("expected email validation message")
	}
}

func TestLoginSuccessRedirects(t *testing.T) {
	api := &stubAPI{result: &backend.LoginResult{
		Identity: rbac.Identity{ID: "1", Email: "a@b.com", DisplayName: "alice", Role: rbac.RoleAdmin, Permissions: []string{rbac.Wildcard}},
		Token:    "t1",
	}}
	h := newAuthHandler(t, api)
	req := postLogin(url.Values{"email": {"a@b.com"}, "password": {"x"}})
	sess, _ := h.sessions.Load(context.Background(), req)
	before := sess.ID
	res := h.serve(t, h.handler.HandleLoginForTest, req, sess)

	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d", res.Code)
	}
	if sess.ID == before {
		t.Fatalf("expected session id rotation")
	}
	if sess.Get(auth.TokenKey) != "t1" {
		t.Fatalf("expected token stored")
	}
	list := h.registry.For(sess.ID).List()
	if len(list) != 1 || list[0].Kind != ui.KindSuccess {
		t.Fatalf("expected one success notification, got %+v", list)
	}
}

func TestLoginTwoFactorPrompt(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{err: &shared.AuthError{RequiresTwoFactor: true}})
	req := postLogin(url.Values{"email": {"a@b.com"}, "password": {"x"}})
	sess, _ := h.sessions.Load(context.Background(), req)
	res := h.serve(t, h.handler.HandleLoginForTest, req, sess)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, `name="two_factor_token"`) {
		t.Fatalf("expected two-factor field")
	}
	if strings.Contains(body, "Login Failed") {
		t.Fatalf("did not expect the generic failure toast")
	}
	list := h.registry.For(sess.ID).List()
	if len(list) != 1 || list[0].Kind != ui.KindInfo {
		t.Fatalf("expected a single info notification, got %+v", list)
	}
	if sess.Get(auth.TokenKey) != "" {
		t.Fatalf("session must stay anonymous")
	}
}

func TestLoginAcceptsBrowserValidEmail(t *testing.T) {
	api := &stubAPI{result: &backend.LoginResult{
		Identity: rbac.Identity{ID: "7", Email: "a@b.com575", Role: rbac.RoleAdmin, Permissions: []string{rbac.Wildcard}},
		Token:    "t7",
	}}
	h := newAuthHandler(t, api)
	req := postLogin(url.Values{"email": {"a@b.com575"}, "password": {"secret"}})
	sess, _ := h.sessions.Load(context.Background(), req)
	res := h.serve(t, h.handler.HandleLoginForTest, req, sess)

	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d", res.Code)
	}
	if sess.Get(auth.TokenKey) != "t7" {
		t.Fatalf("expected token stored")
	}
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{})
	for _, email := range []string{"a@", "@b.com", "a b@c.com", "a@-b.com"} {
		req := postLogin(url.Values{"email": {email}, "password": {"x"}})
		sess, _ := h.sessions.Load(context.Background(), req)
		res := h.serve(t, h.handler.HandleLoginForTest, req, sess)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", email, res.Code)
		}
	}
}

func TestLoginRejected(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{err: &shared.AuthError{Message: "Invalid credentials"}})
	req := postLogin(url.Values{"email": {"a@b.com"}, "password": {"bad"}})
	sess, _ := h.sessions.Load(context.Background(), req)
	res := h.serve(t, h.handler.HandleLoginForTest, req, sess)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid credentials") {
		t.Fatalf("expected error banner")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{})
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	sess, _ := h.sessions.Load(context.Background(), req)
	if err := auth.NewGateway(sess).Write("t1", rbac.Identity{ID: "1", Email: "a@b.com"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := h.serve(t, h.handler.HandleLogoutForTest, req, sess)
	if res.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login")
	}
	if _, _, ok := auth.NewGateway(sess).Read(); ok {
		t.Fatalf("expected cleared session")
	}
}

func postRefresh(returnTo string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/session/refresh", strings.NewReader(url.Values{"return_to": {returnTo}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRefreshSwapsToken(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{refreshed: "t2"})
	req := postRefresh("/users?page=2")
	sess, _ := h.sessions.Load(context.Background(), req)
	if err := auth.NewGateway(sess).Write("t1", rbac.Identity{ID: "1", Email: "a@b.com"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := h.serve(t, h.handler.HandleRefreshForTest, req, sess)
	if loc := res.Header().Get("Location"); loc != "/users?page=2" {
		t.Fatalf("expected redirect back, got %q", loc)
	}
	token, _, ok := auth.NewGateway(sess).Read()
	if !ok || token != "t2" {
		t.Fatalf("expected refreshed token, got %q", token)
	}
}

func TestRefreshFailureSignsOut(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{refreshErr: shared.ErrSessionExpired})
	req := postRefresh("//evil.example.com")
	sess, _ := h.sessions.Load(context.Background(), req)
	if err := auth.NewGateway(sess).Write("t1", rbac.Identity{ID: "1", Email: "a@b.com"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := h.serve(t, h.handler.HandleRefreshForTest, req, sess)
	if res.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login")
	}
	if _, _, ok := auth.NewGateway(sess).Read(); ok {
		t.Fatalf("expected cleared session")
	}
}

func TestRefreshAnonymousGoesToLogin(t *testing.T) {
	h := newAuthHandler(t, &stubAPI{refreshed: "t2"})
	req := postRefresh("/dashboard")
	sess, _ := h.sessions.Load(context.Background(), req)
	res := h.serve(t, h.handler.HandleRefreshForTest, req, sess)
	if res.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login")
	}
}
