package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

// Credentials is the login request body.
type Credentials struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	TwoFactorToken string `json:"twoFactorToken,omitempty"`
}

// LoginResult is the normalised login outcome. The client never stores it.
type LoginResult struct {
	Identity     rbac.Identity
	Token        string
	RefreshToken string
}

type loginResponse struct {
	Success      *bool       `json:"success"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *remoteUser `json:"user"`
	Requires2FA  bool        `json:"requires2FA"`
	Message      string      `json:"message"`
}

type remoteUser struct {
	ID               string    `json:"id"`
	MongoID          string    `json:"_id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Permissions      []string  `json:"permissions"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	IsActive         *bool     `json:"isActive"`
	CreatedAt        Timestamp `json:"createdAt"`
	UpdatedAt        Timestamp `json:"updatedAt"`
}

// Login posts the credentials and normalises the identity. A 401 here is a
// rejected login, not an expired session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var resp loginResponse
	err := c.send(WithSession(ctx, nil), http.MethodPost, "/auth/login", nil, creds, &resp, false)
	if err != nil {
		var remoteErr *shared.RemoteError
		if errors.As(err, &remoteErr) {
			if requiresTwoFactor(remoteErr.Body) {
				return nil, &shared.AuthError{RequiresTwoFactor: true, Err: err}
			}
			return nil, &shared.AuthError{Message: loginFailure(remoteErr.Message), Err: err}
		}
		return nil, err
	}
	if resp.Requires2FA {
		return nil, &shared.AuthError{RequiresTwoFactor: true}
	}

	accepted := (resp.Success != nil && *resp.Success && resp.Token != "") || (resp.Token != "" && resp.User != nil)
	if !accepted {
		return nil, &shared.AuthError{Message: loginFailure(resp.Message)}
	}

	user := resp.User
	if user == nil {
		user = &remoteUser{Email: creds.Email}
	}
	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = resp.Token
	}
	return &LoginResult{
		Identity:     c.normalizeIdentity(user, c.now()),
		Token:        resp.Token,
		RefreshToken: refresh,
	}, nil
}

// Logout asks the backend to invalidate the token. Callers treat failure as
// non-fatal.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, false)
}

// Refresh exchanges the current token for a new one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.Post(ctx, "/admin/auth/refresh", nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &shared.AuthError{Message: "refresh returned no token"}
	}
	return resp.Token, nil
}

// Me fetches the backend's view of the current operator.
func (c *Client) Me(ctx context.Context) (*rbac.Identity, error) {
	var user remoteUser
	if err := c.Get(ctx, "/admin/auth/me", nil, &user); err != nil {
		return nil, err
	}
	identity := c.normalizeIdentity(&user, c.now())
	return &identity, nil
}

func (c *Client) normalizeIdentity(user *remoteUser, now time.Time) rbac.Identity {
	id := user.ID
	if id == "" {
		id = user.MongoID
	}
	name := user.Username
	if name == "" {
		name = user.Name
	}
	if name == "" {
		name = user.Email
	}
	identity := rbac.Identity{
		ID:               id,
		Email:            user.Email,
		DisplayName:      name,
		TwoFactorEnabled: user.TwoFactorEnabled,
		IsActive:         true,
		LastLogin:        now,
		CreatedAt:        user.CreatedAt.OrNow(now),
		UpdatedAt:        user.UpdatedAt.OrNow(now),
	}
	if c.grantWildcard {
		identity.Role = rbac.RoleAdmin
		identity.Permissions = []string{rbac.Wildcard}
		identity.TwoFactorEnabled = false
		return identity
	}
	identity.Role = rbac.ParseRole(user.Role)
	identity.Permissions = append([]string(nil), user.Permissions...)
	if user.IsActive != nil {
		identity.IsActive = *user.IsActive
	}
	return identity
}

func requiresTwoFactor(body []byte) bool {
	var probe struct {
		Requires2FA bool `json:"requires2FA"`
		Data        struct {
			Requires2FA bool `json:"requires2FA"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Requires2FA || probe.Data.Requires2FA
}

func loginFailure(message string) string {
	if m := strings.TrimSpace(message); m != "" {
		return m
	}
	return "Login failed"
}
