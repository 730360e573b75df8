package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidEvent           = errors.New("invalid event")
	ErrInvalidMerge           = errors.New("invalid merge")
	ErrRedirectCycle          = errors.New("redirect cycle detected")
	ErrRedirectChainTooLong   = errors.New("redirect chain exceeds hop limit")
	ErrClaimUnresolved        = errors.New("correlation key claim conflict without readable owner")
	ErrJourneyNotFound        = errors.New("journey not found")
	ErrCorrelationKeyNotFound = errors.New("correlation key not found")
	ErrEventNotFound          = errors.New("archived event not found")
	ErrInvalidQuery           = errors.New("invalid query")
	ErrCorruptDocument        = errors.New("stored document is corrupt")
)

// FieldError describes one rejected field of an inbound event.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned for events that can never be stitched.
// It unwraps to ErrInvalidEvent.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidEvent.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field.Field, field.Message))
	}
	return ErrInvalidEvent.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// IsValidation reports whether err must never be retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEvent)
}

// IsConsistencyViolation reports whether err signals a corrupted redirect
// graph or a merge the graph must never contain. Redelivery cannot fix either.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, ErrRedirectCycle) ||
		errors.Is(err, ErrRedirectChainTooLong) ||
		errors.Is(err, ErrInvalidMerge)
}
