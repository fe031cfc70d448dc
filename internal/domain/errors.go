package domain

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidKind   = errors.New("kind must be expense or income")
	ErrInvalidDate   = errors.New("date must be a valid YYYY-MM-DD calendar date")
)

// ValidationError reports bad or missing caller input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return "validation failed: " + msg
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidRangeError is returned when a date range ends before it starts.
type InvalidRangeError struct {
	Start civil.Date
	End   civil.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// As lets errors.As treat an InvalidRangeError as a ValidationError.
func (e *InvalidRangeError) As(target any) bool {
	if v, ok := target.(**ValidationError); ok {
		*v = &ValidationError{Field: "range", Msg: e.Error()}
		return true
	}
	return false
}

// DependencyError wraps a failure of the database or the text-generation
// service.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// Dependency wraps err as a DependencyError unless it already is one, or is
// a validation or not-found error.
func Dependency(name string, err error) error {
	if err == nil {
		return nil
	}
	var (
		dep *DependencyError
		nf  *NotFoundError
		ve  *ValidationError
	)
	if errors.As(err, &dep) || errors.As(err, &nf) || errors.As(err, &ve) {
		return err
	}
	return &DependencyError{Dependency: name, Err: err}
}
