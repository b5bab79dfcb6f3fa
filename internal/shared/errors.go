package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned when the backend rejects the bearer token.
	// The session has already been cleared by the time a caller sees it.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// AuthError reports a rejected login.
type AuthError struct {
	Message           string
	RequiresTwoFactor bool
	Err               error
}

func (e *AuthError) Error() string {
	if e.RequiresTwoFactor {
		return "two-factor code required"
	}
	if e.Message != "" {
		return e.Message
	}
	return "login failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is a client-side guard failure. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// RemoteError is a non-2xx, non-401 backend response.
type RemoteError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// NetworkError means the request never produced a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend %s %s unreachable: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserSafeMessage turns an error into text fit for a notification or banner.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		authErr       *AuthError
		validationErr *ValidationError
		remoteErr     *RemoteError
		networkErr    *NetworkError
	)
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.As(err, &authErr):
		return authErr.Error()
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &remoteErr):
		if msg := strings.TrimSpace(remoteErr.Message); msg != "" {
			return msg
		}
		return "The server could not complete the request."
	case errors.As(err, &networkErr):
		return "Could not reach the server. Check your connection and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// RemoteStatus extracts the backend status code, or 0.
func RemoteStatus(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Status
	}
	return 0
}
