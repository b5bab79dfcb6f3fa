package rbac

import (
	"log/slog"
	"net/http"
)

// Outcome is the route guard decision.
type Outcome int

const (
	// Render shows the target page inside the shell.
	Render Outcome = iota
	// Redirect sends the operator to the login route.
	Redirect
	// Deny shows the access denied placeholder inside the shell.
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	default:
		return "render"
	}
}

// Decide is the pure route guard decision.
func Decide(principal Principal, required []string) Outcome {
	if !principal.Authenticated || !principal.Identity.Valid() {
		return Redirect
	}
	if !Allowed(principal.Identity, required) {
		return Deny
	}
	return Render
}

// PrincipalFunc hydrates the session for the request and reports what it found.
// It may return a request carrying additional context values.
type PrincipalFunc func(r *http.Request) (Principal, *http.Request)

// DeniedFunc renders the access denied placeholder. It must not redirect.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, required []string)

// Guard wires the route guard for HTTP handlers.
type Guard struct {
	Principal PrincipalFunc
	Denied    DeniedFunc
	LoginPath string
	Logger    *slog.Logger
}

// Require gates the handler behind authentication and any-of the permissions.
// Called without permissions it only requires authentication.
func (g Guard) Require(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal Principal
			if g.Principal != nil {
				principal, r = g.Principal(r)
			}
			switch Decide(principal, normalized) {
			case Redirect:
				http.Redirect(w, r, g.loginPath(), http.StatusSeeOther)
			case Deny:
				if g.Logger != nil {
					g.Logger.Info("access denied",
						slog.String("path", r.URL.Path),
						slog.String("operator", principal.Identity.Email),
						slog.Any("required", normalized))
				}
				if g.Denied != nil {
					g.Denied(w, r, normalized)
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			default:
				next.ServeHTTP(w, ContextWithIdentity(r, principal.Identity))
			}
		})
	}
}

func (g Guard) loginPath() string {
	if g.LoginPath == "" {
		return "/login"
	}
	return g.LoginPath
}
