package errors

import "fmt"

// ErrorCode represents a citelink error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrInvalidCitation ErrorCode = "INVALID_CITATION" // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"   // 404
	ErrConflict        ErrorCode = "CONFLICT"         // 409
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// CiteError represents a structured error with code, status, and details.
type CiteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CiteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CiteError {
	return &CiteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidCitation creates a 400 error for a citation that fails the exhibit grammar.
func NewInvalidCitation(reference string, reason error) *CiteError {
	msg := fmt.Sprintf("invalid citation %q", reference)
	if reason != nil {
		msg = fmt.Sprintf("%s: %v", msg, reason)
	}
	return &CiteError{
		Code:    ErrInvalidCitation,
		Status:  400,
		Message: msg,
		Details: map[string]any{"reference": reference},
	}
}

// NewNotFound creates a 404 error for a missing exhibit, file or project.
func NewNotFound(identifier string) *CiteError {
	return &CiteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing filesystem path.
func NewFileNotFound(path string) *CiteError {
	return &CiteError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *CiteError {
	return &CiteError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CiteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CiteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a CiteError with the given code.
func Is(err error, code ErrorCode) bool {
	if cErr, ok := err.(*CiteError); ok {
		return cErr.Code == code
	}
	return false
}
