package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/telemetry"
)

// ErrorResponse writes err to the client with the status its domain code maps to.
//
// JSON clients (and every /api/ path) get {"error":{"code","message"}}; others get
// plain text. Internal errors carry a generic message; the detail is only logged.
// 5xx responses are logged at error level and captured to Sentry, 4xx at info.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logError(r, err, code, status)

	if wantsJSON(r) {
		writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
		return
	}
	http.Error(w, message, status)
}

// ValidationErrorResponse writes a 400 with per-field messages.
// Errors that are not validation errors fall back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, err)
		return
	}

	logError(r, err, domain.EINVALID, http.StatusBadRequest)

	if wantsJSON(r) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code:    domain.EINVALID,
			Message: domain.ErrorMessage(err),
			Fields:  domain.GetValidationFields(err),
		}})
		return
	}
	http.Error(w, ve.Error(), http.StatusBadRequest)
}

// NotFoundResponse writes a 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Not found"))
}

// InternalErrorResponse writes a generic 500. err may be nil.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EINTERNAL, domain.ECONFIG:
		return http.StatusInternalServerError
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func logError(r *http.Request, err error, code string, status int) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	attrs := []any{
		"error", errString(err),
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", attrs...)
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{
			"code":       code,
			"path":       r.URL.Path,
			"request_id": middleware.GetRequestID(ctx),
		})
		return
	}
	logger.InfoContext(ctx, "request rejected", attrs...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func wantsJSON(r *http.Request) bool {
	return acceptsJSON(r) || strings.HasPrefix(r.URL.Path, "/api/")
}

// acceptsJSON checks if the client prefers JSON responses.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}
