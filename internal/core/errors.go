package core

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("transaction not found")
	ErrInvalidID = errors.New("invalid transaction id")
)

// FieldError describes one rejected field of a payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationError carries every field violation found in a payload, in
// evaluation order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation for field.
func (e *ValidationError) Add(field, message, value string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, Value: value})
}

// Err returns e when it holds violations, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
