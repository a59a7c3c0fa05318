package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRoomNotAvailable    = errors.New("room is not available for the requested dates")
	ErrRoomNotFound        = errors.New("room not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidTransition   = errors.New("invalid booking status transition")
	ErrPersistenceConflict = errors.New("booking conflicts with an existing reservation")
)

// ValidationError collects every violated field of a request so the caller
// gets the full picture in one response instead of the first failure only.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid booking data: %s", strings.Join(fields, ", "))
}
