package domain

import (
	"errors"
	"fmt"
)

// FormatError reports an unrecognized or corrupt save container or identifier.
type FormatError struct {
	Reason string
	Err    error
}

func (e FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format: %s: %v", e.Reason, e.Err)
	}
	return "format: " + e.Reason
}

func (e FormatError) Unwrap() error { return e.Err }

// NotFoundError is returned when a league, team or player row is missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports roster input that fails required-field or type checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// IntegrityError reports stored data with no known mapping, a critical write
// that affected no rows, or a blocking integrity rule violation.
type IntegrityError struct {
	Reason     string
	Violations []Violation
}

func (e IntegrityError) Error() string {
	if len(e.Violations) == 0 {
		return "integrity: " + e.Reason
	}
	return fmt.Sprintf("integrity: %s (%d violations, first: %s)", e.Reason, len(e.Violations), e.Violations[0].Message)
}

// IOError wraps a file system failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e IOError) Unwrap() error { return e.Err }

// Kind returns a stable code naming the taxonomy member err belongs to, or
// "internal" when it is none of them.
func Kind(err error) string {
	var (
		formatErr     FormatError
		notFoundErr   NotFoundError
		validationErr ValidationError
		integrityErr  IntegrityError
		ioErr         IOError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &integrityErr):
		return "integrity"
	case errors.As(err, &ioErr):
		return "io"
	default:
		return "internal"
	}
}
