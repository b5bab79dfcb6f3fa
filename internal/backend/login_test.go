package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

func TestLoginNormalisesIdentity(t *testing.T) {
	var creds Credentials
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&creds)
		_, _ = w.Write([]byte(`{"token":"t1","user":{"id":"1","email":"a@b.com"}}`))
	})

	res, err := client.Login(context.Background(), Credentials{Email: "a@b.com575", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com575", creds.Email)
	assert.Equal(t, "t1", res.Token)
	assert.Equal(t, "t1", res.RefreshToken)
	assert.Equal(t, "1", res.Identity.ID)
	assert.Equal(t, "a@b.com", res.Identity.Email)
	assert.Equal(t, "a@b.com", res.Identity.DisplayName)
	assert.Equal(t, rbac.RoleAdmin, res.Identity.Role)
	assert.Equal(t, []string{rbac.Wildcard}, res.Identity.Permissions)
	assert.True(t, res.Identity.IsActive)
}

func TestLoginAcceptsSuccessShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"token":"t2","refreshToken":"r2","user":{"_id":"abc","email":"op@example.com","username":"op"}}`))
	})
	res, err := client.Login(context.Background(), Credentials{Email: "op@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Identity.ID)
	assert.Equal(t, "op", res.Identity.DisplayName)
	assert.Equal(t, "r2", res.RefreshToken)
}

func TestLoginSuccessWithoutUserUsesCredentials(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"token":"t3"}`))
	})
	res, err := client.Login(context.Background(), Credentials{Email: "solo@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "solo@example.com", res.Identity.Email)
	assert.True(t, res.Identity.Valid())
}

func TestLoginRejectsMissingToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"1","email":"a@b.com"},"message":"account locked"}`))
	})
	_, err := client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "x"})
	var authErr *shared.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, authErr.RequiresTwoFactor)
	assert.Equal(t, "account locked", authErr.Error())
}

func TestLoginTwoFactorRequired(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"requires2FA":true}`))
	})
	sess := &fakeSession{token: "stale"}
	_, err := client.Login(WithSession(context.Background(), sess), Credentials{Email: "a@b.com", Password: "x"})
	var authErr *shared.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, authErr.RequiresTwoFactor)
	assert.Zero(t, sess.expired)
}

func TestLoginRejectedCredentials(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})
	_, err := client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "bad"})
	var authErr *shared.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", shared.UserSafeMessage(err))
}

func TestLoginHonoursBackendRolesWithoutWildcard(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"t4","user":{"id":"9","email":"m@example.com","role":"moderator","permissions":["content:read"]}}`))
	})
	client.grantWildcard = false
	res, err := client.Login(context.Background(), Credentials{Email: "m@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleModerator, res.Identity.Role)
	assert.Equal(t, []string{rbac.PermContentRead}, res.Identity.Permissions)
}

func TestLogoutFailureIsReported(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	sess := &fakeSession{token: "t1"}
	err := client.Logout(WithSession(context.Background(), sess))
	assert.Equal(t, http.StatusNotFound, shared.RemoteStatus(err))
	assert.Zero(t, sess.expired)
}

func TestRefreshAndMe(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/admin/auth/refresh":
			_, _ = w.Write([]byte(`{"token":"t-new"}`))
		case "/api/v1/admin/auth/me":
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"1","email":"a@b.com","username":"alice"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := WithSession(context.Background(), &fakeSession{token: "t1"})
	token, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t-new", token)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.DisplayName)
}
