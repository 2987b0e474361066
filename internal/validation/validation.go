// Package validation checks request payloads declared with `validate:"..."`
// struct tags and turns failures into an apperror carrying every failing field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/conduit/internal/apperror"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// instance returns the shared validator. validator.Validate caches struct
// metadata and is safe for concurrent use.
func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON name ("tagList", not "TagList").
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		// notblank: non-empty after trimming whitespace. Works through pointers.
		v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() != reflect.String {
				return true
			}
			return strings.TrimSpace(field.String()) != ""
		})

		// maxbytes: string length in bytes, not runes. bcrypt limits by bytes.
		v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() != reflect.String {
				return true
			}
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(field.String()) <= limit
		})

		validate = v
	})
	return validate
}

// Struct validates s. On failure it returns an *apperror.AppError wrapping
// apperror.ErrValidation with one entry per failing field.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], message(fe))
	}
	return apperror.Invalid(fields)
}

func message(fe validator.FieldError) string {
	// "url|len=0" reports the whole alternation as its tag.
	tag, _, _ := strings.Cut(fe.Tag(), "|")

	switch tag {
	case "required", "notblank":
		return "can't be blank"
	case "email":
		return "is invalid"
	case "url", "uri":
		return "must be a valid URI"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("is too short (minimum is %s characters)", fe.Param())
		}
		return "must be greater than or equal to " + fe.Param()
	case "maxbytes":
		return fmt.Sprintf("is too long (maximum is %s bytes)", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
		}
		return "must be less than or equal to " + fe.Param()
	}
	return "is invalid"
}
