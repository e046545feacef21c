package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dukerupert/remindr/internal/domain"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields are ignored. An empty body decodes to the zero value.
func DecodeJSON(r *http.Request, dst any) error {
	const op = "handler.DecodeJSON"

	if r.Body == nil {
		return nil
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Errorf(domain.EINVALID, op, "Request body is not valid JSON")
		case errors.As(err, &typeErr):
			return domain.NewValidationError(op, typeErr.Field, "has the wrong type")
		default:
			return domain.Errorf(domain.EINVALID, op, "Request body is not valid JSON")
		}
	}

	if dec.More() {
		return domain.Errorf(domain.EINVALID, op, "Request body must contain a single JSON object")
	}
	return nil
}

// RequireJSONContentType reports an error when a non-empty body is not declared as JSON.
func RequireJSONContentType(r *http.Request) error {
	if r.ContentLength == 0 {
		return nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return nil
	}
	return domain.Errorf(domain.EINVALID, "handler.RequireJSONContentType", "Content-Type must be application/json")
}
