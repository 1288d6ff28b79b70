package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure answers with the status statusFor picks. Server-side failures
// are logged with the request's fields and reported as "<prefix>: <err>";
// client mistakes are reported with their own message.
func writeFailure(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, err error, prefix string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ChildLogger(log, logger.FieldsFromContext(r.Context())...).Errorw(prefix,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, status,
			logger.FieldError, err)
		writeError(w, status, prefix+": "+err.Error())
		return
	}
	writeError(w, status, err.Error())
}

// readJSON decodes a JSON body, rejecting unknown trailing data. Size and
// syntax problems come back as errors statusFor understands.
func readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return errors.Wrapf(ErrBodyTooLarge, "limit is %d bytes", maxBytes.Limit)
		}
		return errors.NewInvalidRequestError("invalid request body: %v", err)
	}
	if dec.More() {
		return errors.NewInvalidRequestError("invalid request body: unexpected data after JSON object")
	}
	return nil
}
