package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/logger"
)

// errorDetails is the machine-readable part of an error response.
type errorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error errorDetails `json:"error"`
}

// statusFor maps an error to the HTTP status the API answers with.
func statusFor(err error) int {
	switch {
	case errs.HasKind(err, errs.ErrKindUnknownTable):
		return http.StatusNotFound
	case errs.HasKind(err, errs.ErrKindTimeout):
		return http.StatusGatewayTimeout
	case errs.HasKind(err, errs.ErrKindInvalidInput):
		return http.StatusBadRequest
	case errs.HasKind(err, errs.ErrKindFetchFailed),
		errs.HasKind(err, errs.ErrKindToolFailed),
		errs.HasKind(err, errs.ErrKindDecodeFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error response. Server-side failures are
// logged; client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{
			"path":   r.URL.Path,
			"status": status,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetails{Code: errs.KindOf(err).String(), Message: err.Error()},
	})
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
