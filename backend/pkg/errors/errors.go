package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInput represents rejected caller input
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeValidation represents a schema-invalid LLM response
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeService represents LLM/embedding transport or auth failures
	ErrorTypeService ErrorType = "service"
	// ErrorTypeStore represents graph database transport or pool failures
	ErrorTypeStore ErrorType = "store"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrType returns the error category. Concrete error types embed *BaseError,
// so the method is promoted and type checks work through errors.As.
func (e *BaseError) ErrType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrEmptyInput is returned when triage input is empty or whitespace-only
var ErrEmptyInput = NewBaseError(ErrorTypeInput, "brain dump text cannot be empty", nil)

// ValidationError is returned when the LLM response fails schema validation
// after the retry budget is exhausted.
type ValidationError struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// UpstreamServiceError is returned when the LLM or embedding service fails
// at the transport or auth level.
type UpstreamServiceError struct {
	*BaseError
	Service string
}

func NewUpstreamServiceError(service string, err error) *UpstreamServiceError {
	return &UpstreamServiceError{
		BaseError: NewBaseError(ErrorTypeService, fmt.Sprintf("%s request failed", service), err),
		Service:   service,
	}
}

// UpstreamStoreError is returned when the graph store fails: transport
// errors, pool exhaustion, or a write against a missing owner.
type UpstreamStoreError struct {
	*BaseError
	Operation string
}

func NewUpstreamStoreError(operation string, err error) *UpstreamStoreError {
	return &UpstreamStoreError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// IsErrorType checks if an error belongs to a category
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ ErrType() ErrorType }
	if errors.As(err, &typed) {
		return typed.ErrType() == errType
	}
	return false
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}
