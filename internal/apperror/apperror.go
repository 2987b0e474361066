// Package apperror defines the typed errors the service layer returns.
//
// Each AppError wraps one of the sentinel errors below, so callers test the
// kind with errors.Is and read the details with errors.As. The HTTP layer is
// the only place that turns a kind into a status code.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("Validation Error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrCommentReference = errors.New("comment does not belong to article")
	ErrTooManyRequests  = errors.New("too many requests")
)

type AppError struct {
	Err     error               // actual error
	Message string              // Human-readable error message
	Field   string              // Optional: field causing the error
	Fields  map[string][]string // Optional: every failing field, for multi-field validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

// Invalid reports several failing fields at once. The map is copied.
func Invalid(fields map[string][]string) *AppError {
	copied := make(map[string][]string, len(fields))
	keys := make([]string, 0, len(fields))
	for k, msgs := range fields {
		copied[k] = append([]string(nil), msgs...)
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(copied[k], ", "))
	}

	return &AppError{
		Err:     ErrValidation,
		Message: strings.Join(parts, "; "),
		Fields:  copied,
	}
}

// Conflict reports a uniqueness violation on field, e.g. a taken username.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

// Taken reports that every named field collides with an existing record.
func Taken(fields ...string) *AppError {
	all := make(map[string][]string, len(fields))
	for _, f := range fields {
		all[f] = []string{"has already been taken"}
	}
	return &AppError{
		Err:     ErrConflict,
		Message: strings.Join(fields, ", ") + " has already been taken",
		Fields:  all,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for missing or rejected credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// CommentReference is returned when a comment is addressed through an
// article it does not belong to.
func CommentReference() *AppError {
	return &AppError{
		Err:     ErrCommentReference,
		Message: "This comment does not belong to the given article",
		Field:   "comment",
	}
}

// TooManyRequests is returned by the rate limiter.
func TooManyRequests() *AppError {
	return &AppError{
		Err:     ErrTooManyRequests,
		Message: "too many requests, slow down",
	}
}
