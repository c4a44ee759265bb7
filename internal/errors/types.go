// Package errors defines the typed errors shared by the content pipeline,
// the HTTP layer and the CLI.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeMissingParameter = "ERR_MISSING_PARAMETER"
	ErrCodeInvalidFilename  = "ERR_INVALID_FILENAME"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeFetchFailed      = "ERR_FETCH_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// AppError is a structured error type with context.
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same type and code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Code: code, Message: message}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// Wrap wraps err with a type, code and message. It returns nil for a nil err.
func Wrap(err error, errType ErrorType, code, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{Type: errType, Code: code, Message: message, Cause: err}
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *AppError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapNetwork wraps an error as a network error.
func WrapNetwork(err error, code, message string) *AppError {
	return Wrap(err, ErrorTypeNetwork, code, message)
}

// WrapInternal wraps an error as an internal error.
func WrapInternal(err error, code, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *AppError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// ErrInvalidFilename reports a content file name that failed the traversal check.
func ErrInvalidFilename(name string) *AppError {
	return NewValidationError(ErrCodeInvalidFilename, "invalid filename").
		WithContext("file", name)
}

// ErrFileNotFound reports a safe name that exists in no content namespace.
func ErrFileNotFound(name string) *AppError {
	return NewNotFoundError(ErrCodeFileNotFound, "file not found: "+name).
		WithContext("file", name)
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type
	}

	return ErrorTypeInternal
}

// HasCode reports whether err (or any error it wraps) is an AppError with code.
func HasCode(err error, code string) bool {
	var ae *AppError
	for err != nil {
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}

	return false
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeValidation
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNotFound
}

// IsNotExist reports whether a filesystem error means the path is absent,
// including a path component that is not a directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, syscall.ENOTDIR)
}

// HTTPStatus maps an error to the status code the delivery layer should answer with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
