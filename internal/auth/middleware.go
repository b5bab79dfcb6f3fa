package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/view"
)

type storeKey struct{}

// WithStore attaches the request's session store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// StoreFromContext returns the request's session store, or nil.
func StoreFromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(storeKey{}).(*Store)
	return store
}

// Sessions builds and hydrates the session store of each request.
type Sessions struct {
	API    Authenticator
	Logger *slog.Logger
}

// Principal hydrates the store and binds it to the request, so the backend
// client reads the token from it and reports 401s back to it. It is the
// route guard's hydration step.
func (s Sessions) Principal(r *http.Request) (rbac.Principal, *http.Request) {
	store := StoreFromContext(r.Context())
	if store == nil {
		store = NewStore(shared.SessionFromContext(r.Context()), s.API, s.Logger)
	}
	snap := store.Hydrate()
	ctx := WithStore(r.Context(), store)
	ctx = backend.WithSession(ctx, store)
	if !snap.ExpiresAt.IsZero() {
		ctx = view.WithSessionExpiry(ctx, snap.ExpiresAt)
	}
	principal := rbac.Principal{Identity: snap.User, Authenticated: snap.IsAuthenticated}
	return principal, r.WithContext(ctx)
}

// Middleware hydrates without gating, for public pages that still show who
// is signed in.
func (s Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, r := s.Principal(r)
		if principal.Authenticated {
			r = rbac.ContextWithIdentity(r, principal.Identity)
		}
		next.ServeHTTP(w, r)
	})
}
