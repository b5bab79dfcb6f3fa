package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name     string
		identity *Identity
		required []string
		want     bool
	}{
		{"empty requirement", &Identity{Role: RoleAnalyst}, nil, true},
		{"nil identity empty requirement", nil, nil, true},
		{"nil identity", nil, []string{PermUsersRead}, false},
		{"matching permission", &Identity{Role: RoleModerator, Permissions: []string{PermContentRead}}, []string{PermContentRead}, true},
		{"any of", &Identity{Role: RoleAnalyst, Permissions: []string{PermJobsRead}}, []string{PermUsersRead, PermJobsRead}, true},
		{"case insensitive", &Identity{Role: RoleAnalyst, Permissions: []string{"Users:Read"}}, []string{PermUsersRead}, true},
		{"wildcard", &Identity{Role: RoleAnalyst, Permissions: []string{Wildcard}}, []string{PermSystemManage}, true},
		{"admin override", &Identity{Role: RoleAdmin}, []string{PermSystemManage}, true},
		{"super admin override", &Identity{Role: RoleSuperAdmin}, []string{PermBillingRead}, true},
		{"missing permission", &Identity{Role: RoleModerator, Permissions: []string{PermContentRead}}, []string{PermUsersRead}, false},
		{"blank requirement entries", &Identity{Role: RoleAnalyst}, []string{" ", ""}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allowed(tc.identity, tc.required))
		})
	}
}

func TestDecide(t *testing.T) {
	analyst := &Identity{ID: "7", Email: "ana@example.com", Role: RoleAnalyst, Permissions: []string{PermAnalyticsRead}}

	assert.Equal(t, Redirect, Decide(Principal{}, nil))
	assert.Equal(t, Redirect, Decide(Principal{Authenticated: true}, nil))
	assert.Equal(t, Render, Decide(Principal{Identity: analyst, Authenticated: true}, nil))
	assert.Equal(t, Render, Decide(Principal{Identity: analyst, Authenticated: true}, []string{PermAnalyticsRead}))
	assert.Equal(t, Deny, Decide(Principal{Identity: analyst, Authenticated: true}, []string{PermUsersRead}))
}

func TestGuardRequire(t *testing.T) {
	moderator := &Identity{ID: "3", Email: "mod@example.com", Role: RoleModerator, Permissions: []string{PermContentRead}}
	hydrations := 0
	guard := Guard{
		Principal: func(r *http.Request) (Principal, *http.Request) {
			hydrations++
			if r.Header.Get("X-Test-Anonymous") != "" {
				return Principal{}, r
			}
			return Principal{Identity: moderator, Authenticated: true}, r
		},
		Denied: func(w http.ResponseWriter, r *http.Request, required []string) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("access denied"))
		},
	}
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		require.NotNil(t, identity)
		_, _ = w.Write([]byte("page for " + identity.Email))
	})

	t.Run("anonymous redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("X-Test-Anonymous", "1")
		rec := httptest.NewRecorder()
		guard.Require(PermUsersRead)(page).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("missing permission renders denied without redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		rec := httptest.NewRecorder()
		guard.Require(PermUsersRead)(page).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Contains(t, rec.Body.String(), "access denied")
	})

	t.Run("granted renders page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/content", nil)
		rec := httptest.NewRecorder()
		guard.Require(PermContentRead)(page).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "page for mod@example.com", rec.Body.String())
	})

	assert.Equal(t, 3, hydrations)
}

func TestNavigationMatchesGuard(t *testing.T) {
	identities := []*Identity{
		{ID: "1", Role: RoleAnalyst, Permissions: []string{PermAnalyticsRead}},
		{ID: "2", Role: RoleModerator, Permissions: []string{PermContentRead, PermUsersRead}},
		{ID: "3", Role: RoleAdmin},
		{ID: "4", Role: RoleAnalyst, Permissions: []string{Wildcard}},
	}
	for _, identity := range identities {
		visible := map[string]bool{}
		for _, item := range Navigation(identity, "/") {
			visible[item.Path] = true
		}
		for _, item := range menu {
			want := Decide(Principal{Identity: identity, Authenticated: true}, item.Permissions) == Render
			assert.Equal(t, want, visible[item.Path], "identity %s path %s", identity.ID, item.Path)
		}
	}
}

func TestNavigationActive(t *testing.T) {
	items := Navigation(&Identity{ID: "1", Role: RoleAdmin}, "/users/42")
	require.Len(t, items, len(menu))
	for _, item := range items {
		assert.Equal(t, item.Path == "/users", item.Active, item.Path)
	}

	items = Navigation(&Identity{ID: "1", Role: RoleAdmin}, "/")
	assert.True(t, items[0].Active)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleSuperAdmin, ParseRole("SUPER_ADMIN"))
	assert.Equal(t, RoleAdmin, ParseRole(" admin "))
	assert.Equal(t, RoleModerator, ParseRole("moderator"))
	assert.Equal(t, RoleAnalyst, ParseRole("something-else"))
}
