package services

import "errors"

var (
	// ErrNotFound means the referenced record does not exist. Callers treat it
	// as "nothing to do", distinct from a hard failure.
	ErrNotFound = errors.New("record not found")

	// ErrNotAuthorized means the caller is authenticated but does not own the
	// resource.
	ErrNotAuthorized = errors.New("not authorized")
)

// FieldError reports a validation or constraint problem tied to one input
// field, so forms can surface it inline instead of as a raw failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func fieldError(field, message string) []FieldError {
	return []FieldError{{Field: field, Message: message}}
}
