package errors

import "fmt"

// ErrorCode represents a stencil error code.
type ErrorCode string

const (
	ErrUnsupportedFormat      ErrorCode = "UNSUPPORTED_FORMAT"       // 415
	ErrCorruptDocument        ErrorCode = "CORRUPT_DOCUMENT"         // 422
	ErrIncompatibleFieldKinds ErrorCode = "INCOMPATIBLE_FIELD_KINDS" // 422
	ErrMissingRequiredField   ErrorCode = "MISSING_REQUIRED_FIELD"   // 422
	ErrFieldFormat            ErrorCode = "FIELD_FORMAT_ERROR"       // 422
	ErrCancelled              ErrorCode = "CANCELLED"                // 409
	ErrNotFound               ErrorCode = "NOT_FOUND"                // 404
	ErrInvalidRequest         ErrorCode = "INVALID_REQUEST"          // 400
	ErrConflict               ErrorCode = "CONFLICT"                 // 409
	ErrInternal               ErrorCode = "INTERNAL"                 // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnsupportedFormat creates a 415 error for an unrecognized template format.
func NewUnsupportedFormat(format string) *Error {
	return &Error{
		Code:    ErrUnsupportedFormat,
		Status:  415,
		Message: fmt.Sprintf("unsupported template format: %q", format),
		Details: map[string]any{"format": format},
	}
}

// NewCorruptDocument creates a 422 error for input that cannot be opened.
// Not retryable without new input.
func NewCorruptDocument(reason string) *Error {
	return &Error{
		Code:    ErrCorruptDocument,
		Status:  422,
		Message: fmt.Sprintf("corrupt document: %s", reason),
	}
}

// NewIncompatibleFieldKinds creates a 422 error for a batch whose templates map
// the same canonical key to incompatible kinds.
func NewIncompatibleFieldKinds(key, kindA, kindB string) *Error {
	return &Error{
		Code:    ErrIncompatibleFieldKinds,
		Status:  422,
		Message: fmt.Sprintf("field %q has incompatible kinds across templates: %s vs %s", key, kindA, kindB),
		Details: map[string]any{"canonical_key": key, "kinds": []string{kindA, kindB}},
	}
}

// NewMissingRequiredField creates a 422 error for an absent required value.
func NewMissingRequiredField(key string) *Error {
	return &Error{
		Code:    ErrMissingRequiredField,
		Status:  422,
		Message: fmt.Sprintf("missing required field: %s", key),
		Details: map[string]any{"canonical_key": key},
	}
}

// NewFieldFormat creates a 422 error for a value that cannot be formatted for
// its field. Retryable with corrected input.
func NewFieldFormat(key, reason string) *Error {
	return &Error{
		Code:    ErrFieldFormat,
		Status:  422,
		Message: fmt.Sprintf("field %q: %s", key, reason),
		Details: map[string]any{"canonical_key": key},
	}
}

// NewCancelled creates a 409 error for a batch job skipped before start.
func NewCancelled() *Error {
	return &Error{
		Code:    ErrCancelled,
		Status:  409,
		Message: "job cancelled before execution",
	}
}

// NewNotFound creates a 404 error for a missing template or document.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *Error {
	return &Error{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a stencil Error with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*Error); ok {
		return sErr.Code == code
	}
	return false
}
