// Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one struct in the slice; the assertion logic is written once.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("article", "how-to-train-your-dragon"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "can't be blank"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Invalid wraps ErrValidation",
			err:       Invalid(map[string][]string{"body": {"can't be blank"}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("username", "has already been taken"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid token"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "CommentReference wraps ErrCommentReference",
			err:       CommentReference(),
			target:    ErrCommentReference,
			wantMatch: true,
		},
		{
			name:      "TooManyRequests wraps ErrTooManyRequests",
			err:       TooManyRequests(),
			target:    ErrTooManyRequests,
			wantMatch: true,
		},
		{
			name:      "CommentReference is not a NotFound",
			err:       CommentReference(),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("article", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("deleting comment: %w", NotFound("comment", "c1")),
			target:    ErrNotFound,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("article", "abc123"),
			wantMessage: "article not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "can't be blank"),
			wantMessage: "can't be blank",
		},
		{
			name: "Invalid lists fields in order",
			err: Invalid(map[string][]string{
				"title": {"can't be blank"},
				"body":  {"can't be blank"},
			}),
			wantMessage: "body can't be blank; title can't be blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("article", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "is invalid")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if got := err.Fields["email"]; len(got) != 1 || got[0] != "is invalid" {
		t.Errorf("Fields[email] = %v, want [is invalid]", got)
	}
}

func TestInvalidCopiesInput(t *testing.T) {
	in := map[string][]string{"title": {"can't be blank"}}
	err := Invalid(in)

	in["title"][0] = "mutated"
	in["body"] = []string{"added later"}

	if got := err.Fields["title"][0]; got != "can't be blank" {
		t.Errorf("Fields[title][0] = %q, want original message", got)
	}
	if _, ok := err.Fields["body"]; ok {
		t.Error("Fields should not see keys added after construction")
	}
}

func TestTaken(t *testing.T) {
	err := Taken("username", "email")

	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Taken() should wrap ErrConflict")
	}
	for _, f := range []string{"username", "email"} {
		if got := err.Fields[f]; len(got) != 1 || got[0] != "has already been taken" {
			t.Errorf("Fields[%s] = %v", f, got)
		}
	}
	if want := "username, email has already been taken"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
