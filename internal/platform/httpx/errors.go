// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/clubroster/roster/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Storage and unknown failures are rendered without detail.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Errors: verr.Fields,
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
	case errors.Is(err, shared.ErrMissingToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrMissingToken.Error())
	case errors.Is(err, shared.ErrInvalidOrExpiredToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidOrExpiredToken.Error())
	case errors.Is(err, shared.ErrInvalidRefreshToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidRefreshToken.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthorized.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", shared.ErrForbidden.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.ErrNotFound.Error())
	case errors.Is(err, shared.ErrDuplicateUsername):
		Problem(w, http.StatusConflict, "Duplicate", shared.ErrDuplicateUsername.Error())
	case errors.Is(err, shared.ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", shared.ErrRateLimited.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
