package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives the
// mapped user message from catalog.MapError, which never leaks internals.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/service"
)

var (
	errInvalidParam     = errors.New("invalid query parameter")
	errNoFile           = errors.New("no file provided")
	errFileTooLarge     = errors.New("file too large")
	errRateLimited      = errors.New("rate limit exceeded")
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := catalog.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks the HTTP status for an error returned by the catalog or
// the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParam),
		errors.Is(err, catalog.ErrUnsupportedSortKey),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNoHeader),
		errors.Is(err, service.ErrEmptyUpload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoSource):
		return http.StatusConflict
	case errors.Is(err, service.ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
