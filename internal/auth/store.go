package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/contentforge/admin-console/internal/backend"
	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

// State is the session store state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Authenticator is the backend surface the store needs.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResult, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (string, error)
}

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	User            *rbac.Identity
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	ExpiresAt       time.Time
}

// Store owns the operator session for one request. Every write to the durable
// keys goes through its gateway.
type Store struct {
	gateway Gateway
	api     Authenticator
	logger  *slog.Logger

	user      *rbac.Identity
	token     string
	isLoading bool
	err       string
}

// NewStore builds a store over the request session.
func NewStore(sess *shared.Session, api Authenticator, logger *slog.Logger) *Store {
	return &Store{gateway: NewGateway(sess), api: api, logger: logger}
}

// State reports the current state.
func (s *Store) State() State {
	switch {
	case s.isLoading:
		return Authenticating
	case s.user != nil && s.token != "":
		return Authenticated
	default:
		return Anonymous
	}
}

// IsAuthenticated holds iff both user and token are set.
func (s *Store) IsAuthenticated() bool {
	return s.user != nil && s.token != ""
}

// Token implements backend.Session.
func (s *Store) Token() string {
	return s.token
}

// Identity returns the operator, or nil.
func (s *Store) Identity() *rbac.Identity {
	return s.user
}

// Hydrate loads the durable pair. Calling it repeatedly yields the same
// snapshot; partial or unreadable data is cleared.
func (s *Store) Hydrate() Snapshot {
	token, identity, ok := s.gateway.Read()
	if !ok {
		if s.gateway.Partial() {
			s.gateway.Clear()
		}
		s.user, s.token = nil, ""
		return s.Snapshot()
	}
	s.user, s.token = identity, token
	return s.Snapshot()
}

// Login authenticates against the backend. On failure the store is anonymous,
// Error holds the message and the error is returned so the caller can branch
// on a two-factor prompt.
func (s *Store) Login(ctx context.Context, creds backend.Credentials) error {
	s.isLoading = true
	s.err = ""

	res, err := s.api.Login(ctx, creds)
	s.isLoading = false
	if err != nil {
		s.user, s.token = nil, ""
		s.gateway.Clear()
		s.err = shared.UserSafeMessage(err)
		return err
	}
	if err := s.gateway.Write(res.Token, res.Identity); err != nil {
		s.err = shared.UserSafeMessage(err)
		return err
	}
	identity := res.Identity
	s.user, s.token = &identity, res.Token
	return nil
}

// Logout invalidates the token remotely when possible. The local session is
// anonymous afterwards whatever the backend answered.
func (s *Store) Logout(ctx context.Context) {
	s.isLoading = true
	if s.token != "" {
		if err := s.api.Logout(backend.WithSession(ctx, s)); err != nil && s.logger != nil {
			s.logger.Info("remote logout failed", slog.Any("error", err))
		}
	}
	s.clear()
}

// ForceLogout is called by the backend client on a 401. It bypasses the
// remote logout.
func (s *Store) ForceLogout() {
	if s.logger != nil && s.user != nil {
		s.logger.Info("session expired", slog.String("operator", s.user.Email))
	}
	s.clear()
}

// RefreshToken swaps the token. A failed refresh logs the operator out.
func (s *Store) RefreshToken(ctx context.Context) error {
	token, err := s.api.Refresh(backend.WithSession(ctx, s))
	if err != nil {
		s.Logout(ctx)
		return err
	}
	s.token = token
	s.gateway.WriteToken(token)
	return nil
}

// ClearError resets the captured error.
func (s *Store) ClearError() {
	s.err = ""
}

// Snapshot copies the store.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Token:           s.token,
		IsAuthenticated: s.IsAuthenticated(),
		IsLoading:       s.isLoading,
		Error:           s.err,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	if exp, ok := TokenExpiry(s.token); ok {
		snap.ExpiresAt = exp
	}
	return snap
}

func (s *Store) clear() {
	s.gateway.Clear()
	s.user, s.token = nil, ""
	s.isLoading = false
	s.err = ""
}
