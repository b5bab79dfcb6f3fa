package auth

import (
	"encoding/json"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

// Durable keys in the operator session.
const (
	TokenKey    = "admin_token"
	IdentityKey = "admin_user"
)

// Gateway is the single authority over the stored token and identity. The
// two keys are all-or-nothing: a session holding only one of them is
// anonymous.
type Gateway struct {
	sess *shared.Session
}

// NewGateway wraps the request session.
func NewGateway(sess *shared.Session) Gateway {
	return Gateway{sess: sess}
}

// Read returns the stored pair. ok is false when either key is missing or
// the identity does not parse.
func (g Gateway) Read() (token string, identity *rbac.Identity, ok bool) {
	if g.sess == nil {
		return "", nil, false
	}
	token = g.sess.Get(TokenKey)
	raw := g.sess.Get(IdentityKey)
	if token == "" || raw == "" {
		return "", nil, false
	}
	var decoded rbac.Identity
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", nil, false
	}
	if !decoded.Valid() {
		return "", nil, false
	}
	return token, &decoded, true
}

// Partial reports whether exactly one of the keys is present or the pair is
// unreadable.
func (g Gateway) Partial() bool {
	if g.sess == nil {
		return false
	}
	if _, _, ok := g.Read(); ok {
		return false
	}
	return g.sess.Get(TokenKey) != "" || g.sess.Get(IdentityKey) != ""
}

// Write stores both keys.
func (g Gateway) Write(token string, identity rbac.Identity) error {
	if g.sess == nil {
		return shared.ErrSessionExpired
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	g.sess.Set(TokenKey, token)
	g.sess.Set(IdentityKey, string(raw))
	return nil
}

// WriteToken replaces the token, keeping the identity.
func (g Gateway) WriteToken(token string) {
	if g.sess == nil {
		return
	}
	g.sess.Set(TokenKey, token)
}

// Clear removes both keys.
func (g Gateway) Clear() {
	if g.sess == nil {
		return
	}
	g.sess.Delete(TokenKey)
	g.sess.Delete(IdentityKey)
}
