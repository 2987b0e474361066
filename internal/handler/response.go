// Package handler turns HTTP requests into service calls and service
// results (or errors) into JSON responses.
//
// Handlers never decide what an error means. Every failure goes through
// WriteError, which is the only place an apperror kind becomes a status code.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/conduit/internal/apperror"
)

// maxBodyBytes caps request bodies; articles are the largest payload.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error envelope shared by every endpoint:
//
//	{"errors": {"title": ["can't be blank"]}}
//
// The key is the failing field, or the status code when no field applies.
type ErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps an error from any layer to a status code and the error
// envelope. Unknown errors become a bare 500; their detail is logged, never
// sent to the client.
//
// Its signature matches auth.ErrorFunc and middleware.ErrorFunc so that
// 401 and 429 responses share the envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.ErrorContext(r.Context(), "unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("500", "internal server error"))
		return
	}

	status := statusOf(appErr)

	switch {
	case len(appErr.Fields) > 0:
		writeJSON(w, status, ErrorResponse{Errors: appErr.Fields})
	case appErr.Field != "":
		writeJSON(w, status, errorBody(appErr.Field, appErr.Message))
	default:
		writeJSON(w, status, errorBody(strconv.Itoa(status), appErr.Message))
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrCommentReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(key, message string) ErrorResponse {
	return ErrorResponse{Errors: map[string][]string{key: {message}}}
}

// decodeJSON reads the request body into v. The body must hold exactly one
// JSON value; anything malformed, trailing data, or a body over
// maxBodyBytes is a validation error on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		return apperror.ValidationFailed("body", "is invalid JSON")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperror.ValidationFailed("body", "is invalid JSON")
	}
	return nil
}

// HandleNotFound answers unknown routes with the error envelope instead of
// chi's plain-text 404.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
}
