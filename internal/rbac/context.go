package rbac

import (
	"context"
	"net/http"
)

type identityKey struct{}

// ContextWithIdentity attaches the guarded identity to the request.
func ContextWithIdentity(r *http.Request, identity *Identity) *http.Request {
	if identity == nil {
		return r
	}
	return r.WithContext(WithIdentity(r.Context(), identity))
}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity set by the guard, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity
}
