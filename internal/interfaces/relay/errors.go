package relay

import (
	"errors"
	"net/http"

	"go-socket-hub/internal/applicatoin/facade"
	"go-socket-hub/internal/infrastructure/hub"
)

// StatusCode maps service errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, facade.ErrMissingURL),
		errors.Is(err, facade.ErrInvalidURL),
		errors.Is(err, hub.ErrUnsupportedScheme),
		errors.Is(err, hub.ErrEmptyKey):
		return http.StatusBadRequest
	case errors.Is(err, facade.ErrHostNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, hub.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, hub.ErrReceiveOnly):
		return http.StatusUnprocessableEntity
	case errors.Is(err, hub.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
