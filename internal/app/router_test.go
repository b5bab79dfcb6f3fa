package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/analytics"
	analytichttp "github.com/contentforge/admin-console/internal/analytics/http"
	"github.com/contentforge/admin-console/internal/auth"
	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/content"
	"github.com/contentforge/admin-console/internal/dashboard"
	consolejobs "github.com/contentforge/admin-console/internal/jobs"
	"github.com/contentforge/admin-console/internal/placeholder"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/settings"
	"github.com/contentforge/admin-console/internal/testing/consoletest"
	"github.com/contentforge/admin-console/internal/ui"
	"github.com/contentforge/admin-console/internal/users"
	_ "github.com/contentforge/admin-console/testing"
)

type noLogin struct{}

func (noLogin) Login(context.Context, backend.Credentials) (*backend.LoginResult, error) {
	return nil, errors.New("not used")
}
func (noLogin) Logout(context.Context) error            { return nil }
func (noLogin) Refresh(context.Context) (string, error) { return "", errors.New("not used") }

type emptyReports struct{}

func (emptyReports) Report(context.Context, analytics.Filter) (analytics.Report, error) {
	return analytics.Report{}, nil
}
func (emptyReports) Invalidate(context.Context) error { return nil }

type fixedOverview struct{}

func (fixedOverview) Overview(context.Context) (analytics.Overview, error) {
	return analytics.Overview{TotalUsers: 3}, nil
}

func consoleRouter(t *testing.T) (*consoletest.Harness, http.Handler) {
	t.Helper()
	h := consoletest.New(t)
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/users/u1", consoletest.JSON(`{"_id": "u1", "username": "ann", "email": "ann@example.com", "isActive": true}`))
	api.On(http.MethodGet, "/admin/jobs", consoletest.JSON(`{"data": [], "pagination": {"page": 1, "limit": 20, "total": 0, "pages": 0}}`))
	api.On(http.MethodGet, "/admin/jobs/stats", consoletest.JSON(`{"total": 0}`))
	api.On(http.MethodGet, "/admin/settings", consoletest.JSON(`{"emailService": {"provider": "resend"}, "aiService": {"provider": "openai"}}`))

	dashboardStore := dashboard.NewStore(h.Redis, dashboard.NewSnapshot(0))
	router := NewRouter(RouterParams{
		Logger:           h.Logger,
		Config:           &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second},
		Pages:            h.Pages,
		SessionManager:   h.Sessions,
		CSRFManager:      h.CSRF,
		AuthHandler:      auth.NewHandler(h.Logger, noLogin{}, h.Pages, h.Sessions, h.CSRF, h.Audit),
		UIHandler:        ui.NewHandler(h.Logger, h.Registry),
		DashboardHandler: dashboard.NewHandler(h.Logger, dashboard.NewService(fixedOverview{}, dashboardStore, h.Logger), h.Pages),
		UsersHandler:     users.NewHandler(h.Logger, users.NewService(api), h.Pages, h.Audit),
		ContentHandler:   content.NewHandler(h.Logger, content.NewService(api), h.Pages, h.Audit),
		JobsHandler:      consolejobs.NewHandler(h.Logger, consolejobs.NewService(api), h.Pages, h.Audit),
		AnalyticsHandler: analytichttp.NewHandler(h.Logger, emptyReports{}, h.Pages, nil),
		SettingsHandler:  settings.NewHandler(h.Logger, settings.NewService(api), h.Pages, h.Audit),
		BillingHandler:   placeholder.NewHandler(h.Pages, placeholder.Billing),
		SecurityHandler:  placeholder.NewHandler(h.Pages, placeholder.Security),
	})
	return h, router
}

func signIn(t *testing.T, h *consoletest.Harness, identity rbac.Identity) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := h.Sessions.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, auth.NewGateway(sess).Write("token-"+identity.ID, identity))
	rec := httptest.NewRecorder()
	require.NoError(t, h.Sessions.Commit(ctx, rec, req, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestRouteAccessByRole(t *testing.T) {
	h, router := consoleRouter(t)
	operators := map[string]*http.Cookie{
		"admin":     signIn(t, h, rbac.Identity{ID: "a1", Email: "admin@example.com", Role: rbac.RoleAdmin}),
		"moderator": signIn(t, h, rbac.Identity{ID: "m1", Email: "mod@example.com", Role: rbac.RoleModerator, Permissions: []string{rbac.PermUsersRead, rbac.PermContentRead}}),
		"analyst":   signIn(t, h, rbac.Identity{ID: "n1", Email: "analyst@example.com", Role: rbac.RoleAnalyst, Permissions: []string{rbac.PermAnalyticsRead}}),
	}

	tests := []struct {
		name     string
		operator string
		path     string
		status   int
		location string
		required string
	}{
		{name: "anonymous jobs", path: "/jobs", status: http.StatusSeeOther, location: "/login"},
		{name: "anonymous dashboard", path: "/dashboard", status: http.StatusSeeOther, location: "/login"},
		{name: "anonymous settings", path: "/settings", status: http.StatusSeeOther, location: "/login"},
		{name: "analyst settings", operator: "analyst", path: "/settings", status: http.StatusForbidden, required: rbac.PermSystemManage},
		{name: "analyst user detail", operator: "analyst", path: "/users/u1", status: http.StatusForbidden, required: rbac.PermUsersRead},
		{name: "analyst jobs", operator: "analyst", path: "/jobs", status: http.StatusForbidden, required: rbac.PermJobsRead},
		{name: "analyst billing", operator: "analyst", path: "/billing", status: http.StatusForbidden, required: rbac.PermBillingRead},
		{name: "moderator user detail", operator: "moderator", path: "/users/u1", status: http.StatusOK},
		{name: "moderator settings", operator: "moderator", path: "/settings", status: http.StatusForbidden, required: rbac.PermSystemManage},
		{name: "admin settings", operator: "admin", path: "/settings", status: http.StatusOK},
		{name: "admin jobs", operator: "admin", path: "/jobs", status: http.StatusOK},
		{name: "admin security", operator: "admin", path: "/security", status: http.StatusOK},
		{name: "unknown path", operator: "admin", path: "/nowhere", status: http.StatusSeeOther, location: "/"},
		{name: "unknown path anonymous", path: "/nowhere/else", status: http.StatusSeeOther, location: "/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.operator != "" {
				req.AddCookie(operators[tc.operator])
			}
			res := httptest.NewRecorder()
			router.ServeHTTP(res, req)

			require.Equal(t, tc.status, res.Code)
			assert.Equal(t, tc.location, res.Header().Get("Location"))
			if tc.status == http.StatusForbidden {
				body := res.Body.String()
				assert.Contains(t, body, "Access denied")
				assert.Contains(t, body, tc.required)
				assert.Contains(t, body, "<nav", "denied page renders inside the shell")
			}
		})
	}
}

func TestHealthzIsPublic(t *testing.T) {
	_, router := consoleRouter(t)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())
}
