package server

import (
	"net/http"

	"github.com/meridian-news/meridian-ml/errors"
)

// ErrBodyTooLarge marks a request body over server.max_body_bytes
var ErrBodyTooLarge = errors.New("request body too large")

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.IsServiceUnavailableError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
