package session

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the resolver. Callers match them with errors.Is.
var (
	ErrMalformedDate    = errors.New("malformed date")
	ErrInvalidEnum      = errors.New("invalid enum value")
	ErrInvalidValue     = errors.New("invalid value")
	ErrIncompleteConfig = errors.New("incomplete config")
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnsupportedValue = errors.New("unsupported value type")
)

// FieldError ties an error kind to the offending field and raw value.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, fmt.Sprint(e.Value), e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// IncompleteConfigError lists every field still null after resolution.
type IncompleteConfigError struct {
	Fields []string
}

func (e *IncompleteConfigError) Error() string {
	return fmt.Sprintf("%s: some required fields are empty: %s", ErrIncompleteConfig, strings.Join(e.Fields, ", "))
}

func (e *IncompleteConfigError) Unwrap() error { return ErrIncompleteConfig }
