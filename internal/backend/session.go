package backend

import "context"

// Session supplies the bearer token for outgoing calls and is told when the
// backend rejects it. The session store is the only implementation used by
// the console; workers use StaticToken.
type Session interface {
	Token() string
	ForceLogout()
}

type sessionKey struct{}

// WithSession binds the operator session to ctx for the client to read.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionKey{}).(Session)
	return sess
}

// StaticToken is a Session for service callers without an operator.
type StaticToken string

// Token returns the configured token.
func (t StaticToken) Token() string { return string(t) }

// ForceLogout is a no-op; a service token cannot be logged out.
func (t StaticToken) ForceLogout() {}

// SessionToken returns the bearer token bound to ctx, or "".
func SessionToken(ctx context.Context) string {
	if sess := sessionFrom(ctx); sess != nil {
		return sess.Token()
	}
	return ""
}
