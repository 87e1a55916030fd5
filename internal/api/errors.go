// internal/api/errors.go
package api

import (
	"errors"
	"net/http"

	"github.com/libranexus/discovery/internal/authz"
	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/logging"
	"github.com/libranexus/discovery/internal/report"
	"github.com/libranexus/discovery/internal/resilience"
)

// respondServiceError maps domain errors to HTTP statuses. Unrecognised errors
// are logged and reported as a generic internal error.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		respondError(w, r, http.StatusBadRequest, CodeValidationFailed, "request validation failed", verr.fields)
	case errors.Is(err, discovery.ErrInvalidMemberID),
		errors.Is(err, discovery.ErrInvalidScope),
		errors.Is(err, discovery.ErrEmptyQuery),
		errors.Is(err, report.ErrInvalidLimit),
		errors.Is(err, report.ErrInvalidPeriod):
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
	case errors.Is(err, catalog.ErrBookNotFound):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "book not found", nil)
	case errors.Is(err, authz.ErrUnauthenticated):
		respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required", nil)
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, r, http.StatusForbidden, CodeForbidden, "insufficient permissions", nil)
	case errors.Is(err, report.ErrRateLimited):
		respondError(w, r, http.StatusTooManyRequests, CodeTooManyRequests, "report rate limit exceeded, retry later", nil)
	case errors.Is(err, resilience.ErrUnavailable):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("store unavailable")
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable, "service temporarily unavailable", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "internal server error", nil)
	}
}

func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	respondError(w, r, http.StatusBadRequest, CodeBadRequest, message, nil)
}
