package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("entity not found")
	ErrForbiddenField = errors.New("field may not be modified")
	ErrInvalidData    = errors.New("invalid data provided for entity operations")
	ErrUnsupported    = errors.New("operation not supported")
	ErrUnhandled      = errors.New("unexpected error")
)

// FieldError ties a failure to one JSON field of an entity.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func invalidField(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason, Err: ErrInvalidData}
}

// Required fails when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidField(field, "required")
	}
	return nil
}

// WellFormed fails when e is set but not a valid address.
func WellFormed(field string, e Email) error {
	if err := e.Validate(); err != nil {
		return invalidField(field, "not a valid email address")
	}
	return nil
}

// FieldErrors collects every FieldError in err's tree, including errors.Join branches.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *FieldError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}
