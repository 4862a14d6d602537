package services

import (
	"fmt"
	"strings"
)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a submission. Nothing
// downstream is called when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return strings.Join(parts, "; ")
}

// AttachmentResolutionError means a download link could not be made for an
// attachment key. No email has been sent when it is returned.
type AttachmentResolutionError struct {
	Key string
	Err error
}

func (e *AttachmentResolutionError) Error() string {
	return fmt.Sprintf("resolve attachment %s: %v", e.Key, e.Err)
}

func (e *AttachmentResolutionError) Unwrap() error { return e.Err }
