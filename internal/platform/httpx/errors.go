// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/contentforge/admin-console/internal/shared"
)

// RespondError maps console errors to RFC7807 responses. The detail is the
// operator-safe message, never the raw backend body.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validationErr *shared.ValidationError
		networkErr    *shared.NetworkError
	)
	detail := shared.UserSafeMessage(err)
	switch {
	case errors.Is(err, shared.ErrSessionExpired):
		Problem(w, http.StatusUnauthorized, "Session Expired", detail)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.As(err, &validationErr):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail)
	case errors.As(err, &networkErr):
		Problem(w, http.StatusBadGateway, "Backend Unreachable", detail)
	case shared.RemoteStatus(err) == http.StatusForbidden:
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case shared.RemoteStatus(err) == http.StatusNotFound:
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case shared.RemoteStatus(err) != 0:
		Problem(w, http.StatusBadGateway, "Backend Error", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
