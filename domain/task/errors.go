package task

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors shared by every layer that handles tasks.
var (
	// ErrNotFound is returned when the referenced task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrAccessDenied is returned when the caller may not see or change a task.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence is returned when the store did not accept a write.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries field-scoped messages so callers can point at the
// offending input.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

// NewValidationError returns a ValidationError holding a single message.
func NewValidationError(field, message string) *ValidationError {
	ve := &ValidationError{}
	ve.Add(field, message)
	return ve
}

// Add records message against field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Keys returns the offending field names in sorted order.
func (e *ValidationError) Keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range e.Keys() {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Merge combines the messages of errs into one ValidationError. It returns
// nil when none of them holds a message.
func Merge(errs ...*ValidationError) *ValidationError {
	var out *ValidationError
	for _, ve := range errs {
		if ve == nil {
			continue
		}
		for _, k := range ve.Keys() {
			for _, msg := range ve.Fields[k] {
				if out == nil {
					out = &ValidationError{}
				}
				out.Add(k, msg)
			}
		}
	}
	return out
}
