// Package validation checks inbound payloads against their struct tags and
// turns validator failures into a single human-readable message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is returned when a payload violates its schema. Message is safe to
// show to API clients.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds an *Error.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a validation *Error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates s and returns an *Error describing the first violation.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return &Error{Message: message(ves[0])}
	}
	return fmt.Errorf("validate: %w", err)
}

// Var validates a single value against tag; field names the value in the
// resulting message.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return &Error{Message: describe(field, fe.Tag(), fe.Param(), fe.Kind())}
	}
	return fmt.Errorf("validate %s: %w", field, err)
}

func message(fe validator.FieldError) string {
	return describe(fe.Field(), fe.Tag(), fe.Param(), fe.Kind())
}

func describe(field, tag, param string, kind reflect.Kind) string {
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		if kind == reflect.String {
			if param == "1" {
				return field + " must not be empty"
			}
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, tag)
	}
}
